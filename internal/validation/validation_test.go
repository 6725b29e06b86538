package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priority-todo-backend/internal/apperr"
)

func TestErrors_EmptyHasNoError(t *testing.T) {
	v := New()
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err())
}

func TestErrors_Err(t *testing.T) {
	v := New()
	v.AddRequired("title")
	v.AddInvalid("importance", "must be between 1 and 4")

	err := v.Err()
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.TypeValidation))

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "title is required (and 1 more)", appErr.Message)

	fields, ok := appErr.Details.([]FieldError)
	require.True(t, ok)
	assert.Len(t, fields, 2)
	assert.Equal(t, "importance", fields[1].Field)
}

func TestErrors_RequireString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		max       int
		expected  string
		wantError bool
	}{
		{name: "trims", input: "  Buy milk ", max: 200, expected: "Buy milk"},
		{name: "empty", input: "", max: 200, wantError: true},
		{name: "whitespace only", input: "   ", max: 200, wantError: true},
		{name: "too long", input: strings.Repeat("a", 201), max: 200, expected: strings.Repeat("a", 201), wantError: true},
		{name: "multibyte counted as runes", input: strings.Repeat("é", 200), max: 200, expected: strings.Repeat("é", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			got := v.RequireString("title", tt.input, tt.max)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.wantError, v.HasErrors())
		})
	}
}

func TestIsUsername(t *testing.T) {
	assert.True(t, IsUsername("test_user-1"))
	assert.False(t, IsUsername("test user"))
	assert.False(t, IsUsername("user@example"))
	assert.False(t, IsUsername(""))
}
