// Package apperr defines the error taxonomy shared by the marketplace and its
// transports. Errors built here carry a caller facing message and unwrap to one
// of the sentinel kinds so handlers can map them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a domain error with a clean message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the sentinel kind.
func (e *Error) Unwrap() error { return e.kind }

func newf(kind error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validation reports a missing field or invalid value.
func Validation(format string, args ...any) error { return newf(ErrValidation, format, args...) }

// NotFound reports an unknown identifier.
func NotFound(format string, args ...any) error { return newf(ErrNotFound, format, args...) }

// Conflict reports an operation that is invalid for the current state.
func Conflict(format string, args ...any) error { return newf(ErrConflict, format, args...) }

// Unauthorized reports a missing or invalid session.
func Unauthorized(format string, args ...any) error { return newf(ErrUnauthorized, format, args...) }

// Forbidden reports an authenticated caller without access.
func Forbidden(format string, args ...any) error { return newf(ErrForbidden, format, args...) }
