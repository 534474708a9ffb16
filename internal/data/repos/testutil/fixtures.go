package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"gorm.io/gorm"
)

var (
	clockBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clockTick atomic.Int64
)

// Stamp returns strictly increasing creation times so natural order is
// deterministic.
func Stamp() time.Time {
	return clockBase.Add(time.Duration(clockTick.Add(1)) * time.Millisecond)
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username, role string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Username:  username,
		Name:      "User " + username,
		Email:     username + "@example.com",
		Password:  "pw",
		Role:      role,
		CreatedAt: Stamp(),
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedInstructor(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Instructor {
	tb.Helper()
	in := &types.Instructor{ID: uuid.New(), UserID: userID, CreatedAt: Stamp()}
	if err := tx.WithContext(ctx).Create(in).Error; err != nil {
		tb.Fatalf("seed instructor: %v", err)
	}
	return in
}

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, createdBy uuid.UUID) *types.Category {
	tb.Helper()
	c := &types.Category{ID: uuid.New(), Name: name, CreatedBy: createdBy, CreatedAt: Stamp()}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

// SeedCourse creates a course and links it to the instructor mapping.
func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, price float64, instructor *types.Instructor, categoryID *uuid.UUID) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:           uuid.New(),
		Title:        title,
		Description:  "about " + title,
		Price:        price,
		CategoryID:   categoryID,
		InstructorID: instructor.ID,
		CreatedAt:    Stamp(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	link := &types.InstructorCourse{InstructorID: instructor.ID, CourseID: c.ID, CreatedAt: Stamp()}
	if err := tx.WithContext(ctx).Create(link).Error; err != nil {
		tb.Fatalf("seed instructor course: %v", err)
	}
	return c
}

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, position int) *types.Module {
	tb.Helper()
	m := &types.Module{
		ID:        uuid.New(),
		CourseID:  courseID,
		Title:     fmt.Sprintf("module %d", position),
		Position:  position,
		CreatedAt: Stamp(),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, m *types.Module, position int) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:        uuid.New(),
		ModuleID:  m.ID,
		CourseID:  m.CourseID,
		Title:     fmt.Sprintf("lesson %d.%d", m.Position, position),
		Position:  position,
		CreatedAt: Stamp(),
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID, progress float64, completed bool) *types.Enrollment {
	tb.Helper()
	e := &types.Enrollment{
		ID:        uuid.New(),
		StudentID: studentID,
		CourseID:  courseID,
		Progress:  progress,
		Completed: completed,
		CreatedAt: Stamp(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func SeedWatch(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID) {
	tb.Helper()
	w := &types.WatchEntry{UserID: userID, LessonID: lessonID, CreatedAt: Stamp()}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed watch: %v", err)
	}
}
