// Package httpx holds the JSON request and response helpers shared by the
// HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/logging"
)

// MaxBodyBytes caps every decoded request body.
const MaxBodyBytes = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data as a JSON response.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// Error maps err onto a status and writes {"error", "details"}. Internal
// failures are logged and their cause is never sent to the client.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger = logging.FromContext(r.Context(), logger)
	status := apperr.Status(err)

	if apperr.ShouldLog(err) {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	} else {
		logger.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	body := errorBody{Error: apperr.UserMessage(err)}
	if appErr, ok := apperr.As(err); ok && appErr.Type != apperr.TypeInternal {
		body.Details = appErr.Details
	}
	JSON(w, status, body)
}

// DecodeJSON reads a single JSON object from the request body into dst.
// Unknown fields, trailing data and oversized bodies are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("request body must contain a single JSON object", nil)
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return apperr.Validation("request body is required", nil)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Validation("invalid JSON", nil)
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return apperr.Validation(fmt.Sprintf("%s has the wrong type", typeErr.Field), nil)
		}
		return apperr.Validation("request body must be a JSON object", nil)
	case errors.As(err, &maxBytesErr):
		return apperr.Validation("request body too large", nil)
	default:
		// json reports unknown fields as plain errors: `json: unknown field "x"`.
		return apperr.Validation("invalid request body", err.Error())
	}
}

// PathID parses the {name} path value as a positive integer id. Anything
// else is reported as resource not found.
func PathID(r *http.Request, name, resource string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound(resource)
	}
	return id, nil
}
