package docstore

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
)

// NewMarketplaceStore registers every marketplace collection on db.
func NewMarketplaceStore(db *gorm.DB, baseLog *logger.Logger) (*GormStore, error) {
	s := NewGormStore(db, baseLog)
	err := errors.Join(
		Register[types.User](s, types.CollectionUsers, ArrayField{
			Field:       "watch_history",
			Table:       types.WatchEntry{}.TableName(),
			OwnerColumn: "user_id",
			ValueColumn: "lesson_id",
		}),
		Register[types.Instructor](s, types.CollectionInstructors, ArrayField{
			Field:       "courses",
			Table:       types.InstructorCourse{}.TableName(),
			OwnerColumn: "instructor_id",
			ValueColumn: "course_id",
		}),
		Register[types.Course](s, types.CollectionCourses),
		Register[types.Category](s, types.CollectionCategories),
		Register[types.Module](s, types.CollectionModules),
		Register[types.Lesson](s, types.CollectionLessons),
		Register[types.Enrollment](s, types.CollectionEnrollments),
		Register[types.Review](s, types.CollectionReviews),
		Register[types.Order](s, types.CollectionOrders),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
