// Package apperror defines the domain error kinds shared by the service,
// pipeline, and HTTP layers. Callers match on the sentinel with errors.Is and
// read the human-readable message through *AppError.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConfig       = errors.New("configuration error")
)

// AppError carries a sentinel kind plus a message safe to show callers.
type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

// Error returns the caller-facing message.
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel so errors.Is matches the kind.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource. HTTP handlers map it to 404.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports bad input on field. HTTP handlers map it to 400.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a duplicate resource. HTTP handlers map it to 409.
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
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

// Unauthorized is returned when the caller has no valid session.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// ConfigMissing reports every required setting that was left empty.
// Commands treat it as fatal before any work starts.
func ConfigMissing(keys ...string) *AppError {
	return &AppError{
		Err:     ErrConfig,
		Message: "missing required configuration: " + strings.Join(keys, ", "),
		Field:   strings.Join(keys, ","),
	}
}
