package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursemart-backend/internal/aggregation"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
)

var identifierLabels = map[string]string{
	"id":            "id",
	"instructor_id": "instructor ID",
	"category_id":   "category ID",
}

// readError classifies errors raised by the aggregation engine.
func readError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var idErr *aggregation.IdentifierError
	switch {
	case errors.As(err, &idErr):
		label, ok := identifierLabels[idErr.Field]
		if !ok {
			label = idErr.Field
		}
		return apierr.InvalidIdentifier(fmt.Sprintf("Invalid %s.", label))
	case errors.Is(err, aggregation.ErrNotFound):
		return apierr.NotFound(notFound)
	}
	return apierr.From(err)
}

// parseID validates a raw identifier before any store access.
func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.InvalidIdentifier(fmt.Sprintf("Invalid %s id.", what))
	}
	return id, nil
}

// writeError classifies a failed write, mapping unique violations to msg.
func writeError(err error, conflict string) error {
	if err == nil {
		return nil
	}
	if apierr.IsUniqueViolation(err) {
		return apierr.Conflict(conflict)
	}
	return apierr.From(err)
}
