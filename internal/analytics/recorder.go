package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"priority-todo-backend/internal/db"
)

// Event is the message published for every recorded event.
type Event struct {
	Name           string         `json:"event"`
	Time           time.Time      `json:"event_time"`
	UserID         int64          `json:"user_id"`
	SessionID      string         `json:"session_id,omitempty"`
	Platform       string         `json:"platform"`
	AppVersion     string         `json:"app_version,omitempty"`
	DeviceLocale   string         `json:"device_locale,omitempty"`
	SourceEventKey string         `json:"source_event_key,omitempty"`
	Properties     map[string]any `json:"properties"`
}

// RoutingKey is the topic the event is published under.
func (e Event) RoutingKey() string {
	return "analytics." + e.Name
}

// Recorder stores events and forwards them to a broker.
type Recorder struct {
	db        *db.DB
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

func NewRecorder(conn *db.DB, publisher Publisher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = NewNoopPublisher(logger)
	}
	return &Recorder{db: conn, publisher: publisher, logger: logger, timeout: 5 * time.Second}
}

// BrokerState reports the publisher's circuit breaker state, or "" when the
// publisher has no breaker.
func (r *Recorder) BrokerState() string {
	if b, ok := r.publisher.(*BreakerPublisher); ok {
		return b.State().String()
	}
	return ""
}

// Record stores and publishes one event. It never fails the caller: errors
// are logged. Events without a user are skipped.
func (r *Recorder) Record(ctx context.Context, env Envelope, name string, props map[string]any, sourceKey string) {
	// the request may already be finishing; the write must not be cut short
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	event, ok := r.newEvent(ctx, env, name, props, sourceKey)
	if !ok {
		return
	}

	if err := r.Log(ctx, event); err != nil {
		r.logger.Warn("failed to store analytics event", "event", name, "error", err)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("failed to encode analytics event", "event", name, "error", err)
		return
	}
	if err := r.publisher.Publish(ctx, event.RoutingKey(), payload); err != nil {
		r.logger.Warn("failed to publish analytics event", "event", name, "error", err)
	}
}

func (r *Recorder) newEvent(ctx context.Context, env Envelope, name string, props map[string]any, sourceKey string) (Event, bool) {
	if name == "" {
		return Event{}, false
	}

	userID := env.UserID
	if userID == 0 {
		uid, ok := UserIDFromContext(ctx)
		if !ok {
			return Event{}, false
		}
		userID = uid
	}

	if props == nil {
		props = map[string]any{}
	}
	platform := env.Platform
	if platform == "" {
		platform = "unknown"
	}

	return Event{
		Name:           name,
		Time:           db.Now(),
		UserID:         userID,
		SessionID:      env.SessionID,
		Platform:       platform,
		AppVersion:     env.AppVersion,
		DeviceLocale:   env.DeviceLocale,
		SourceEventKey: sourceKey,
		Properties:     props,
	}, true
}

// Log inserts one analytics row. A repeated source event key is ignored.
func (r *Recorder) Log(ctx context.Context, e Event) error {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}

	propsExpr := "?"
	if r.db.Dialect == db.Postgres {
		propsExpr = "CAST(? AS JSONB)"
	}

	query := `
		INSERT INTO analytics_events (
			event_name, event_time,
			user_id, session_id,
			platform, app_version, device_locale,
			source_event_key,
			properties
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ` + propsExpr + `)`
	if e.SourceEventKey != "" {
		query += ` ON CONFLICT (source_event_key) DO NOTHING`
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		e.Name, e.Time,
		e.UserID, nullIfEmpty(e.SessionID),
		e.Platform, nullIfEmpty(e.AppVersion), nullIfEmpty(e.DeviceLocale),
		nullIfEmpty(e.SourceEventKey),
		string(props),
	)
	return err
}

func (r *Recorder) Close() error {
	return r.publisher.Close()
}
