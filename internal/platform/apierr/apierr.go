package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	CodeInvalidIdentifier = "invalid_identifier"
	CodeInvalid           = "invalid_request"
	CodeNotFound          = "not_found"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeConflict          = "conflict"
	CodeInternal          = "internal"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the text safe to show a client. Internal failures never expose
// the underlying cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Status >= http.StatusInternalServerError {
		return "Something went wrong. Please try again later."
	}
	return e.Error()
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func InvalidIdentifier(msg string) *Error {
	return New(http.StatusBadRequest, CodeInvalidIdentifier, errors.New(msg))
}

func Invalid(msg string) *Error {
	return New(http.StatusBadRequest, CodeInvalid, errors.New(msg))
}

func NotFound(msg string) *Error {
	return New(http.StatusNotFound, CodeNotFound, errors.New(msg))
}

func Unauthorized(msg string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, errors.New(msg))
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, CodeForbidden, errors.New(msg))
}

func Conflict(msg string) *Error {
	return New(http.StatusConflict, CodeConflict, errors.New(msg))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// From classifies err. Classified errors pass through unchanged; store level
// failures are mapped by kind; everything else becomes Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return New(http.StatusNotFound, CodeNotFound, errors.New("Record not found."))
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return New(http.StatusConflict, CodeConflict, errors.New("Record already exists."))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return New(499, "canceled", err)
	}
	if IsUniqueViolation(err) {
		return New(http.StatusConflict, CodeConflict, errors.New("Record already exists."))
	}
	return Internal(err)
}

// IsUniqueViolation reports whether err was raised by a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code) == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint failed")
}
