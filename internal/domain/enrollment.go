package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enrollment links a student to a course. Progress and Completed are set
// independently.
type Enrollment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	StudentID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course;column:student_id" json:"student_id"`
	CourseID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_student_course;index;column:course_id" json:"course_id"`
	Progress   float64   `gorm:"not null;default:0;column:progress" json:"progress"`
	Completed  bool      `gorm:"not null;default:false;column:completed" json:"completed"`
	EnrolledAt time.Time `gorm:"not null;column:enrolled_at" json:"enrolled_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	return nil
}
