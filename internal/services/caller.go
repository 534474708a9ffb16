package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/coursemart-backend/internal/data/repos"
	types "github.com/yungbote/coursemart-backend/internal/domain"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/ctxutil"
)

func callerID(ctx context.Context) (uuid.UUID, error) {
	id := ctxutil.UserID(ctx)
	if id == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized("Unauthorized request.")
	}
	return id, nil
}

// loadCaller returns the authenticated user; a deleted account is NotFound.
func loadCaller(ctx context.Context, userRepo repos.UserRepo) (*types.User, error) {
	id, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	u, err := userRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load caller: %w", err))
	}
	if u == nil {
		return nil, apierr.NotFound("User not found.")
	}
	return u, nil
}
