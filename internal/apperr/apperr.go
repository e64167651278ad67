// Package apperr defines the error taxonomy shared by all layers.
// Services wrap these sentinels with entity context; handlers map them
// to HTTP status codes with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entity is absent, or deliberately
// hidden (an unpublished event looked up through a public path reports the
// same error as a truly absent id).
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the actor lacks authority over the target.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a state-machine precondition is violated:
// wrong event state, participant limit reached, invalid state action.
var ErrConflict = errors.New("conflict")

// ErrBadRequest is returned for malformed input: an invalid date range,
// a date-margin violation, a batch targeting non-pending requests.
var ErrBadRequest = errors.New("bad request")

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

// Forbidden wraps ErrForbidden with a formatted message.
func Forbidden(format string, args ...any) error {
	return wrap(ErrForbidden, format, args...)
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

// BadRequest wraps ErrBadRequest with a formatted message.
func BadRequest(format string, args ...any) error {
	return wrap(ErrBadRequest, format, args...)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}
