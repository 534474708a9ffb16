package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent    = "Student"
	RoleInstructor = "Instructor"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	Username     string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	Name         string    `gorm:"not null;column:name" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password     string    `gorm:"not null;column:password" json:"-"`
	Role         string    `gorm:"not null;default:'Student';column:role" json:"role"`
	RefreshToken string    `gorm:"column:refresh_token" json:"-"`

	// WatchHistory is materialized from WatchEntry rows by the store.
	WatchHistory []uuid.UUID `gorm:"-" json:"watch_history"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = RoleStudent
	}
	return nil
}

func (u *User) IsInstructor() bool { return u != nil && u.Role == RoleInstructor }

// WatchEntry records that a user watched a lesson.
type WatchEntry struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	LessonID  uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"lesson_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (WatchEntry) TableName() string { return "watch_history" }

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
