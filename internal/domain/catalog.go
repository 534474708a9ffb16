package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	Name        string    `gorm:"not null;uniqueIndex;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null;index;column:created_by" json:"created_by"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Category) TableName() string { return "category" }

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_course_student;column:course_id" json:"course_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_course_student;column:student_id" json:"student_id"`
	Rating    int       `gorm:"not null;column:rating" json:"rating"`
	Review    string    `gorm:"type:text;column:review" json:"review"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Review) TableName() string { return "review" }

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
