// Package apperror defines the error taxonomy shared by services and handlers.
//
// Services return *AppError values (or wrap them); handlers translate the kind
// into an HTTP status. Anything that is not an *AppError is a server fault.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrDuplicate    = errors.New("duplicate key")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

type AppError struct {
	Err     error  // kind sentinel
	Message string // human-readable message, safe to return to clients
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports a unique-constraint violation on field.
func Duplicate(field, message string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: message,
		Field:   field,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Kind returns the sentinel an error chain carries, or nil for server faults.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrDuplicate, ErrUnauthorized, ErrForbidden, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
