// Package validation collects field-level input errors and turns them into a
// single validation AppError.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"priority-todo-backend/internal/apperr"
)

// FieldError describes a problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors accumulates FieldErrors.
type Errors struct {
	fields []FieldError
}

// New returns an empty collector.
func New() *Errors {
	return &Errors{}
}

// Add records a field error.
func (v *Errors) Add(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

// AddRequired records a missing required field.
func (v *Errors) AddRequired(field string) {
	v.Add(field, fmt.Sprintf("%s is required", field))
}

// AddLength records a length violation.
func (v *Errors) AddLength(field string, min, max int) {
	switch {
	case min > 0 && max > 0:
		v.Add(field, fmt.Sprintf("%s must be between %d and %d characters long", field, min, max))
	case min > 0:
		v.Add(field, fmt.Sprintf("%s must be at least %d characters long", field, min))
	default:
		v.Add(field, fmt.Sprintf("%s must be at most %d characters long", field, max))
	}
}

// AddInvalid records an invalid value with a reason.
func (v *Errors) AddInvalid(field, reason string) {
	v.Add(field, fmt.Sprintf("%s %s", field, reason))
}

// HasErrors reports whether anything was recorded.
func (v *Errors) HasErrors() bool {
	return len(v.fields) > 0
}

// Fields returns the recorded errors.
func (v *Errors) Fields() []FieldError {
	return v.fields
}

// Err returns nil when nothing was recorded, otherwise a validation AppError
// whose message is the first field message and whose details list every field.
func (v *Errors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	msg := v.fields[0].Message
	if len(v.fields) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(v.fields)-1)
	}
	return apperr.Validation(msg, v.fields)
}

// RequireString trims s and checks it is non-empty and within max runes.
// It returns the trimmed value.
func (v *Errors) RequireString(field, s string, max int) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		v.AddRequired(field)
		return trimmed
	}
	if max > 0 && utf8.RuneCountInString(trimmed) > max {
		v.AddLength(field, 1, max)
	}
	return trimmed
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsUsername reports whether s contains only letters, digits, '_' and '-'.
func IsUsername(s string) bool {
	return usernamePattern.MatchString(s)
}
