package analytics

import (
	"log/slog"
	"net/http"
	"strings"

	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/httpx"
	"priority-todo-backend/internal/validation"
)

// Events clients may report themselves. Task events are recorded by the
// server only.
var clientEvents = map[string]bool{
	"app_opened":       true,
	"task_list_viewed": true,
	"focus_task_shown": true,
}

type trackRequest struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// TrackHandler handles POST /analytics/events.
func TrackHandler(rec *Recorder, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			httpx.Error(w, r, logger, apperr.Unauthorized("Authentication required"))
			return
		}

		var body trackRequest
		if err := httpx.DecodeJSON(w, r, &body); err != nil {
			httpx.Error(w, r, logger, err)
			return
		}

		body.Event = strings.TrimSpace(body.Event)
		v := validation.New()
		switch {
		case body.Event == "":
			v.AddRequired("event")
		case !clientEvents[body.Event]:
			v.AddInvalid("event", "is not a reportable event")
		}
		if err := v.Err(); err != nil {
			httpx.Error(w, r, logger, err)
			return
		}

		env := FromRequest(r)
		env.UserID = uid
		rec.Record(r.Context(), env, body.Event, body.Properties, SourceEventKeyFromRequest(r))

		httpx.JSON(w, http.StatusAccepted, map[string]any{"ok": true})
	}
}
