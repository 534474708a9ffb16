package services

import (
	"gorm.io/gorm"

	ag "github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/data/cache"
	"github.com/yungbote/coursemart-backend/internal/data/repos"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

type Services struct {
	Auth       AuthService
	User       UserService
	Course     CourseService
	Category   CategoryService
	Curriculum CurriculumService
	Enrollment EnrollmentService
	Order      OrderService
	Review     ReviewService
}

func New(db *gorm.DB, log *logger.Logger, exec *ag.Executor, listingCache cache.ListingCache, r repos.Repos, auth AuthConfig) Services {
	return Services{
		Auth:       NewAuthService(db, log, r.User, auth),
		User:       NewUserService(db, log, exec, r.User, r.WatchHistory, r.Enrollment, r.Curriculum),
		Course:     NewCourseService(db, log, exec, listingCache, r.User, r.Instructor, r.Course, r.Category, r.Curriculum),
		Category:   NewCategoryService(db, log, exec, listingCache, r.User, r.Category),
		Curriculum: NewCurriculumService(db, log, r.User, r.Instructor, r.Course, r.Curriculum),
		Enrollment: NewEnrollmentService(db, log, r.User, r.Course, r.Enrollment),
		Order:      NewOrderService(db, log, r.User, r.Course, r.Enrollment, r.Order, r.Payment),
		Review:     NewReviewService(db, log, r.Course, r.Enrollment, r.Review),
	}
}
