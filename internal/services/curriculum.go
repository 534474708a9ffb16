package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/coursemart-backend/internal/data/repos"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

type ModuleInput struct {
	Title       string
	Description string
	Position    int
}

type LessonInput struct {
	Title    string
	Content  string
	VideoURL string
	Position int
}

type CurriculumService interface {
	AddModule(ctx context.Context, courseID string, in ModuleInput) (*types.Module, error)
	AddLesson(ctx context.Context, moduleID string, in LessonInput) (*types.Lesson, error)
}

type curriculumService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	instructorRepo repos.InstructorRepo
	courseRepo     repos.CourseRepo
	curriculumRepo repos.CurriculumRepo
}

func NewCurriculumService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	instructorRepo repos.InstructorRepo,
	courseRepo repos.CourseRepo,
	curriculumRepo repos.CurriculumRepo,
) CurriculumService {
	return &curriculumService{
		db:             db,
		log:            baseLog.With("service", "CurriculumService"),
		userRepo:       userRepo,
		instructorRepo: instructorRepo,
		courseRepo:     courseRepo,
		curriculumRepo: curriculumRepo,
	}
}

func (cs *curriculumService) AddModule(ctx context.Context, courseID string, in ModuleInput) (*types.Module, error) {
	id, err := parseID(courseID, "course")
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.Invalid("Module title is required.")
	}
	if in.Position < 1 {
		return nil, apierr.Invalid("Position must be a positive number.")
	}
	course, err := ownedCourse(ctx, cs.userRepo, cs.instructorRepo, cs.courseRepo, id, "update")
	if err != nil {
		return nil, err
	}
	m, err := cs.curriculumRepo.CreateModule(ctx, nil, &types.Module{
		CourseID:    course.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Position:    in.Position,
	})
	if err != nil {
		return nil, writeError(err, fmt.Sprintf("Module position %d is already taken.", in.Position))
	}
	return m, nil
}

func (cs *curriculumService) AddLesson(ctx context.Context, moduleID string, in LessonInput) (*types.Lesson, error) {
	id, err := parseID(moduleID, "module")
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.Invalid("Lesson title is required.")
	}
	if in.Position < 1 {
		return nil, apierr.Invalid("Position must be a positive number.")
	}
	m, err := cs.curriculumRepo.GetModule(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load module: %w", err))
	}
	if m == nil {
		return nil, apierr.NotFound("Module not found.")
	}
	if _, err := ownedCourse(ctx, cs.userRepo, cs.instructorRepo, cs.courseRepo, m.CourseID, "update"); err != nil {
		return nil, err
	}
	l, err := cs.curriculumRepo.CreateLesson(ctx, nil, &types.Lesson{
		ModuleID: m.ID,
		CourseID: m.CourseID,
		Title:    title,
		Content:  in.Content,
		VideoURL: strings.TrimSpace(in.VideoURL),
		Position: in.Position,
	})
	if err != nil {
		return nil, writeError(err, fmt.Sprintf("Lesson position %d is already taken.", in.Position))
	}
	return l, nil
}
