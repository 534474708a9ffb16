package aggregation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the root record of a single-document pipeline is absent.
	ErrNotFound = errors.New("aggregation: record not found")
	// ErrInvalidIdentifier means a key failed its format check before any store access.
	ErrInvalidIdentifier = errors.New("aggregation: invalid identifier")
	// ErrMalformed means a record could not be aggregated (non-numeric sum input, non-array source).
	ErrMalformed = errors.New("aggregation: malformed record")
	// ErrUnknownRelation means a join names a relation the registry does not declare.
	ErrUnknownRelation = errors.New("aggregation: unknown relation")
	// ErrRelationMismatch means a join relation does not start at the collection being processed.
	ErrRelationMismatch = errors.New("aggregation: relation does not start at collection")
	// ErrUnknownStage means the executor was handed a stage variant it cannot interpret.
	ErrUnknownStage = errors.New("aggregation: unknown stage")
)

// IdentifierError names the field whose value failed validation.
type IdentifierError struct {
	Field string
	Value string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

func (e *IdentifierError) Unwrap() error { return ErrInvalidIdentifier }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
