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

type ReviewService interface {
	Add(ctx context.Context, courseID string, rating int, text string) (*types.Review, error)
}

type reviewService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	reviewRepo     repos.ReviewRepo
}

func NewReviewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	reviewRepo repos.ReviewRepo,
) ReviewService {
	return &reviewService{
		db:             db,
		log:            baseLog.With("service", "ReviewService"),
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		reviewRepo:     reviewRepo,
	}
}

// Add records the caller's review of a course they are enrolled in.
func (rs *reviewService) Add(ctx context.Context, courseID string, rating int, text string) (*types.Review, error) {
	id, err := parseID(courseID, "course")
	if err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, apierr.Invalid("Rating must be between 1 and 5.")
	}
	uid, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	course, err := rs.courseRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load course: %w", err))
	}
	if course == nil {
		return nil, apierr.NotFound("Course not found.")
	}
	enrollment, err := rs.enrollmentRepo.GetByStudentAndCourse(ctx, nil, uid, course.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load enrollment: %w", err))
	}
	if enrollment == nil {
		return nil, apierr.Forbidden("Only enrolled students can review this course.")
	}
	review, err := rs.reviewRepo.Create(ctx, nil, &types.Review{
		CourseID:  course.ID,
		StudentID: uid,
		Rating:    rating,
		Review:    strings.TrimSpace(text),
	})
	if err != nil {
		return nil, writeError(err, "You have already reviewed this course.")
	}
	return review, nil
}
