package db

import (
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity
		&types.User{},
		&types.WatchEntry{},
		&types.Instructor{},
		&types.InstructorCourse{},

		// Catalog
		&types.Category{},
		&types.Course{},
		&types.Module{},
		&types.Lesson{},
		&types.Review{},

		// Learning + commerce
		&types.Enrollment{},
		&types.Order{},
		&types.Payment{},
	)
}
