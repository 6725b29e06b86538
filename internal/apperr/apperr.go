// Package apperr defines the error taxonomy shared by stores and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type represents the category of an error.
type Type int

const (
	TypeInternal Type = iota
	TypeValidation
	TypeUnauthorized
	TypeNotFound
	TypeMethodNotAllowed
)

// String returns the string representation of the error type.
func (t Type) String() string {
	switch t {
	case TypeValidation:
		return "validation"
	case TypeUnauthorized:
		return "unauthorized"
	case TypeNotFound:
		return "not_found"
	case TypeMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "internal"
	}
}

// HTTPStatus maps the type onto a response status code.
func (t Type) HTTPStatus() int {
	switch t {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// AppError is a structured application error.
type AppError struct {
	Type    Type
	Message string
	Details any
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError of the same type.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type
	}
	return false
}

// Sentinels usable with errors.Is.
var (
	ErrValidation   = &AppError{Type: TypeValidation}
	ErrUnauthorized = &AppError{Type: TypeUnauthorized}
	ErrNotFound     = &AppError{Type: TypeNotFound}
	ErrInternal     = &AppError{Type: TypeInternal}
)

// Validation creates a validation error. details is serialised to clients.
func Validation(message string, details any) *AppError {
	return &AppError{Type: TypeValidation, Message: message, Details: details}
}

// Unauthorized creates an authentication error.
func Unauthorized(message string) *AppError {
	return &AppError{Type: TypeUnauthorized, Message: message}
}

// NotFound creates a not-found error for a resource, e.g. "Task".
func NotFound(resource string) *AppError {
	return &AppError{Type: TypeNotFound, Message: resource + " not found"}
}

// MethodNotAllowed reports a route that exists but not for the request method.
func MethodNotAllowed() *AppError {
	return &AppError{Type: TypeMethodNotAllowed, Message: "Method not allowed"}
}

// Internal wraps an unexpected failure of operation.
func Internal(operation string, cause error) *AppError {
	return &AppError{
		Type:    TypeInternal,
		Message: "operation failed: " + operation,
		Cause:   cause,
	}
}

// As extracts an AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of type t.
func IsType(err error, t Type) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == t
	}
	return false
}

// Status returns the HTTP status for err. Unknown errors are internal.
func Status(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Type.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// UserMessage returns the message that may be shown to a client.
func UserMessage(err error) string {
	if appErr, ok := As(err); ok && appErr.Type != TypeInternal {
		return appErr.Message
	}
	return "Internal server error"
}

// ShouldLog reports whether err is a system failure rather than a caller mistake.
func ShouldLog(err error) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == TypeInternal
	}
	return true
}
