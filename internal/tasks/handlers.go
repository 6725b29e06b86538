package tasks

import (
	"log/slog"
	"net/http"
	"time"

	"priority-todo-backend/internal/analytics"
	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/auth"
	"priority-todo-backend/internal/httpx"
)

// Handler serves the /tasks endpoints. Every route must be mounted behind
// the auth middleware.
type Handler struct {
	store    *Store
	recorder *analytics.Recorder
	logger   *slog.Logger
}

func NewHandler(store *Store, recorder *analytics.Recorder, logger *slog.Logger) *Handler {
	return &Handler{store: store, recorder: recorder, logger: logger}
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Unauthorized("Authentication required"))
	}
	return uid, ok
}

func (h *Handler) record(r *http.Request, owner int64, name string, props map[string]any) {
	if h.recorder == nil {
		return
	}
	env := analytics.FromRequest(r)
	env.UserID = owner

	// one request may record several events
	key := analytics.SourceEventKeyFromRequest(r)
	if key != "" {
		key += ":" + name
	}
	h.recorder.Record(r.Context(), env, name, props, key)
}

// List handles GET /tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	list, err := h.store.List(r.Context(), owner)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// Get handles GET /tasks/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id", "Task")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	t, err := h.store.Get(r.Context(), owner, id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"task": t})
}

// Create handles POST /tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	var body NewTask
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	t, err := h.store.Create(r.Context(), owner, body)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	h.record(r, owner, "task_created", map[string]any{
		"task_id":        t.ID,
		"importance":     t.Importance,
		"urgency":        t.Urgency,
		"priority_score": t.PriorityScore,
		"status":         t.Status,
		"has_category":   t.CategoryID != nil,
	})

	httpx.JSON(w, http.StatusCreated, map[string]any{"task": t})
}

// Update handles PATCH /tasks/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id", "Task")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var patch Patch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	change, err := h.store.Apply(r.Context(), owner, id, patch)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if !patch.IsEmpty() {
		h.recordUpdate(r, owner, patch, change)
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"task": change.After})
}

func (h *Handler) recordUpdate(r *http.Request, owner int64, patch Patch, change Change) {
	before, after := change.Before, change.After

	h.record(r, owner, "task_updated", map[string]any{
		"task_id":         after.ID,
		"fields":          patch.Fields(),
		"priority_before": before.PriorityScore,
		"priority_after":  after.PriorityScore,
	})

	switch {
	case before.Status != StatusCompleted && after.Status == StatusCompleted:
		h.record(r, owner, "task_completed", map[string]any{
			"task_id":                after.ID,
			"priority_at_completion": after.PriorityScore,
			"time_since_created_sec": int(after.UpdatedAt.Sub(after.CreatedAt) / time.Second),
		})
	case before.Status == StatusCompleted && after.Status != StatusCompleted:
		h.record(r, owner, "task_uncompleted", map[string]any{
			"task_id":                  after.ID,
			"priority_at_uncomplete":   after.PriorityScore,
			"time_since_completed_sec": int(after.UpdatedAt.Sub(before.UpdatedAt) / time.Second),
		})
	}
}

// Delete handles DELETE /tasks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathID(r, "id", "Task")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.store.Delete(r.Context(), owner, id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	h.record(r, owner, "task_deleted", map[string]any{"task_id": id})

	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Task deleted successfully"})
}
