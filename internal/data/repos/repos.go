package repos

import (
	"github.com/yungbote/coursemart-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursemart-backend/internal/data/repos/commerce"
	"github.com/yungbote/coursemart-backend/internal/data/repos/learning"
	"github.com/yungbote/coursemart-backend/internal/data/repos/user"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo
type InstructorRepo = user.InstructorRepo
type WatchHistoryRepo = user.WatchHistoryRepo

type CourseRepo = catalog.CourseRepo
type CategoryRepo = catalog.CategoryRepo
type CurriculumRepo = catalog.CurriculumRepo
type ReviewRepo = catalog.ReviewRepo

type EnrollmentRepo = learning.EnrollmentRepo

type OrderRepo = commerce.OrderRepo
type PaymentRepo = commerce.PaymentRepo

// Repos bundles every write-side repository over one database.
type Repos struct {
	User         UserRepo
	Instructor   InstructorRepo
	WatchHistory WatchHistoryRepo
	Course       CourseRepo
	Category     CategoryRepo
	Curriculum   CurriculumRepo
	Review       ReviewRepo
	Enrollment   EnrollmentRepo
	Order        OrderRepo
	Payment      PaymentRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:         user.NewUserRepo(db, log),
		Instructor:   user.NewInstructorRepo(db, log),
		WatchHistory: user.NewWatchHistoryRepo(db, log),
		Course:       catalog.NewCourseRepo(db, log),
		Category:     catalog.NewCategoryRepo(db, log),
		Curriculum:   catalog.NewCurriculumRepo(db, log),
		Review:       catalog.NewReviewRepo(db, log),
		Enrollment:   learning.NewEnrollmentRepo(db, log),
		Order:        commerce.NewOrderRepo(db, log),
		Payment:      commerce.NewPaymentRepo(db, log),
	}
}
