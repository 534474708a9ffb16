package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/coursemart-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursemart-backend/internal/domain"
)

func TestEnrollmentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewEnrollmentRepo(db, testutil.Logger(t))
	student := testutil.SeedUser(t, ctx, tx, "enrollee", types.RoleStudent)
	c1, c2 := uuid.New(), uuid.New()

	e, err := repo.Create(ctx, tx, &types.Enrollment{StudentID: student.ID, CourseID: c1})
	if err != nil || e.EnrolledAt.IsZero() {
		t.Fatalf("Create: %+v %v", e, err)
	}

	if err := repo.EnsureMany(ctx, tx, student.ID, []uuid.UUID{c1, c2}); err != nil {
		t.Fatalf("EnsureMany: %v", err)
	}
	var count int64
	tx.Model(&types.Enrollment{}).Where("student_id = ?", student.ID).Count(&count)
	if count != 2 {
		t.Fatalf("EnsureMany must skip existing enrollments: count=%d", count)
	}

	progress := 100.0
	if err := repo.UpdateProgress(ctx, tx, e.ID, &progress, nil); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	got, err := repo.GetByStudentAndCourse(ctx, tx, student.ID, c1)
	if err != nil || got == nil {
		t.Fatalf("GetByStudentAndCourse: %+v %v", got, err)
	}
	if got.Progress != 100 || got.Completed {
		t.Fatalf("progress and completed are independent: %+v", got)
	}

	done := true
	if err := repo.UpdateProgress(ctx, tx, e.ID, nil, &done); err != nil {
		t.Fatalf("UpdateProgress(completed): %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, e.ID)
	if !got.Completed || got.Progress != 100 {
		t.Fatalf("completed update: %+v", got)
	}

	if err := repo.DeleteByStudent(ctx, tx, student.ID); err != nil {
		t.Fatalf("DeleteByStudent: %v", err)
	}
	if got, _ := repo.GetByID(ctx, tx, e.ID); got != nil {
		t.Fatalf("enrollment survived DeleteByStudent")
	}
}
