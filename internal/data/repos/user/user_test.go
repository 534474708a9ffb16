package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/coursemart-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursemart-backend/internal/domain"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, tx, []*types.User{
		{
			Username: "userrepo",
			Name:     "User Repo",
			Email:    "userrepo@example.com",
			Password: "pw",
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil || created[0].Role != types.RoleStudent {
		t.Fatalf("Create: unexpected result: %+v", created)
	}
	u := created[0]

	got, err := repo.GetByID(ctx, tx, u.ID)
	if err != nil || got == nil || got.Email != u.Email {
		t.Fatalf("GetByID: %+v %v", got, err)
	}

	for _, ident := range []string{"userrepo", "userrepo@example.com"} {
		got, err := repo.GetByIdentifier(ctx, tx, ident)
		if err != nil || got == nil || got.ID != u.ID {
			t.Fatalf("GetByIdentifier(%q): %+v %v", ident, got, err)
		}
	}

	missing, err := repo.GetByID(ctx, tx, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): %+v %v", missing, err)
	}

	nameTaken, emailTaken, err := repo.Taken(ctx, tx, "userrepo", "other@example.com", uuid.Nil)
	if err != nil || !nameTaken || emailTaken {
		t.Fatalf("Taken: name=%v email=%v err=%v", nameTaken, emailTaken, err)
	}
	nameTaken, emailTaken, err = repo.Taken(ctx, tx, "userrepo", "userrepo@example.com", u.ID)
	if err != nil || nameTaken || emailTaken {
		t.Fatalf("Taken(except self): name=%v email=%v err=%v", nameTaken, emailTaken, err)
	}

	if err := repo.SetRefreshToken(ctx, tx, u.ID, "rt-1"); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}
	byToken, err := repo.GetByRefreshToken(ctx, tx, "rt-1")
	if err != nil || byToken == nil || byToken.ID != u.ID {
		t.Fatalf("GetByRefreshToken: %+v %v", byToken, err)
	}

	if err := repo.UpdateFields(ctx, tx, u.ID, map[string]any{"name": "Renamed"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ = repo.GetByID(ctx, tx, u.ID)
	if got.Name != "Renamed" {
		t.Fatalf("UpdateFields: name=%q", got.Name)
	}

	if err := repo.Delete(ctx, tx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.GetByID(ctx, tx, u.ID); got != nil {
		t.Fatalf("Delete: user still visible")
	}
}

func TestInstructorRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewInstructorRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "teach", types.RoleInstructor)

	first, err := repo.EnsureForUser(ctx, tx, u.ID)
	if err != nil || first == nil {
		t.Fatalf("EnsureForUser: %+v %v", first, err)
	}
	again, err := repo.EnsureForUser(ctx, tx, u.ID)
	if err != nil || again.ID != first.ID {
		t.Fatalf("EnsureForUser must be idempotent: %+v %v", again, err)
	}

	courseID := uuid.New()
	if err := repo.LinkCourse(ctx, tx, first.ID, courseID); err != nil {
		t.Fatalf("LinkCourse: %v", err)
	}
	if err := repo.LinkCourse(ctx, tx, first.ID, courseID); err != nil {
		t.Fatalf("LinkCourse(again): %v", err)
	}
	var links int64
	tx.Model(&types.InstructorCourse{}).Where("instructor_id = ?", first.ID).Count(&links)
	if links != 1 {
		t.Fatalf("links=%d", links)
	}
	if err := repo.UnlinkCourse(ctx, tx, courseID); err != nil {
		t.Fatalf("UnlinkCourse: %v", err)
	}
}
