package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"_id"`
	Title       string     `gorm:"not null;index;column:title" json:"title"`
	Description string     `gorm:"column:description" json:"description"`
	Price       float64    `gorm:"not null;default:0;column:price" json:"price"`
	Thumbnail   string     `gorm:"column:thumbnail" json:"thumbnail"`
	Published   bool       `gorm:"not null;default:false;column:published" json:"published"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index;column:category_id" json:"category_id"`
	// InstructorID references the Instructor mapping row, not the user.
	InstructorID uuid.UUID `gorm:"type:uuid;not null;index;column:instructor_id" json:"instructor_id"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Instructor maps a user to the courses they teach.
type Instructor struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`

	// CourseIDs is materialized from InstructorCourse rows by the store.
	CourseIDs []uuid.UUID `gorm:"-" json:"courses"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Instructor) TableName() string { return "instructor" }

func (i *Instructor) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

type InstructorCourse struct {
	InstructorID uuid.UUID `gorm:"type:uuid;primaryKey" json:"instructor_id"`
	CourseID     uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"course_id"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (InstructorCourse) TableName() string { return "instructor_course" }

type Module struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_module_course_position;column:course_id" json:"course_id"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	Position    int       `gorm:"not null;uniqueIndex:idx_module_course_position;column:position" json:"position"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Module) TableName() string { return "module" }

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type Lesson struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	ModuleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_module_position;column:module_id" json:"module_id"`
	// CourseID is denormalized from the module for history lookups.
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index;column:course_id" json:"course_id"`
	Title     string    `gorm:"not null;column:title" json:"title"`
	Content   string    `gorm:"type:text;column:content" json:"content"`
	VideoURL  string    `gorm:"column:video_url" json:"video_url"`
	Position  int       `gorm:"not null;uniqueIndex:idx_lesson_module_position;column:position" json:"position"`
	Completed bool      `gorm:"not null;default:false;column:completed" json:"completed"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
