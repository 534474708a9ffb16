package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursemart-backend/internal/data/repos"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

type EnrollmentService interface {
	Enroll(ctx context.Context, courseID string) (*types.Enrollment, error)
	UpdateProgress(ctx context.Context, enrollmentID string, progress *float64, completed *bool) (*types.Enrollment, error)
}

type enrollmentService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
) EnrollmentService {
	return &enrollmentService{
		db:             db,
		log:            baseLog.With("service", "EnrollmentService"),
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (es *enrollmentService) Enroll(ctx context.Context, courseID string) (*types.Enrollment, error) {
	id, err := parseID(courseID, "course")
	if err != nil {
		return nil, err
	}
	u, err := loadCaller(ctx, es.userRepo)
	if err != nil {
		return nil, err
	}
	course, err := es.courseRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load course: %w", err))
	}
	if course == nil || !course.Published {
		return nil, apierr.NotFound("Course not found.")
	}
	existing, err := es.enrollmentRepo.GetByStudentAndCourse(ctx, nil, u.ID, course.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load enrollment: %w", err))
	}
	if existing != nil {
		return nil, apierr.Conflict("Already enrolled in this course.")
	}
	e, err := es.enrollmentRepo.Create(ctx, nil, &types.Enrollment{StudentID: u.ID, CourseID: course.ID})
	if err != nil {
		return nil, writeError(err, "Already enrolled in this course.")
	}
	es.log.Info("enrolled", "user_id", u.ID, "course_id", course.ID)
	return e, nil
}

// UpdateProgress sets progress and completed independently; neither is
// derived from the other.
func (es *enrollmentService) UpdateProgress(ctx context.Context, enrollmentID string, progress *float64, completed *bool) (*types.Enrollment, error) {
	id, err := parseID(enrollmentID, "enrollment")
	if err != nil {
		return nil, err
	}
	if progress == nil && completed == nil {
		return nil, apierr.Invalid("Progress or completed is required.")
	}
	if progress != nil && (*progress < 0 || *progress > 100) {
		return nil, apierr.Invalid("Progress must be between 0 and 100.")
	}
	uid, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	e, err := es.enrollmentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load enrollment: %w", err))
	}
	if e == nil {
		return nil, apierr.NotFound("Enrollment not found.")
	}
	if e.StudentID != uid {
		return nil, apierr.Forbidden("You can only update your own enrollments.")
	}
	if err := es.enrollmentRepo.UpdateProgress(ctx, nil, e.ID, progress, completed); err != nil {
		return nil, apierr.From(fmt.Errorf("update progress: %w", err))
	}
	updated, err := es.enrollmentRepo.GetByID(ctx, nil, e.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("reload enrollment: %w", err))
	}
	return updated, nil
}
