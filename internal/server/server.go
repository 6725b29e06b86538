// Package server wires the stores and handlers into the HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"priority-todo-backend/internal/analytics"
	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/auth"
	"priority-todo-backend/internal/categories"
	"priority-todo-backend/internal/config"
	"priority-todo-backend/internal/db"
	"priority-todo-backend/internal/httpx"
	"priority-todo-backend/internal/tasks"
)

// Deps are the collaborators the server does not own.
type Deps struct {
	DB          *db.DB
	Revocations auth.RevocationStore
	Recorder    *analytics.Recorder
}

type Server struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	mux    *http.ServeMux
	server *http.Server
}

func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Revocations == nil {
		deps.Revocations = auth.NewMemoryRevocations()
	}
	if deps.Recorder == nil {
		deps.Recorder = analytics.NewRecorder(deps.DB, nil, logger)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	secret := []byte(s.cfg.JWTSecret)

	users := auth.NewUserStore(s.deps.DB)
	authn := auth.NewAuthenticator(secret, users, s.deps.Revocations)
	protected := auth.NewMiddleware(authn, s.logger)

	authHandler := auth.NewHandler(users, s.deps.Revocations, secret, s.cfg.TokenTTL, s.logger)
	categoryStore := categories.NewStore(s.deps.DB)
	taskHandler := tasks.NewHandler(tasks.NewStore(s.deps.DB, categoryStore), s.deps.Recorder, s.logger)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)

	// Auth
	s.mux.HandleFunc("POST /auth/register", authHandler.Register)
	s.mux.HandleFunc("POST /auth/login", authHandler.Login)
	s.mux.HandleFunc("GET /auth/me", protected.Wrap(authHandler.Me))
	s.mux.HandleFunc("POST /auth/logout", protected.Wrap(authHandler.Logout))
	s.mux.HandleFunc("DELETE /auth/account", protected.Wrap(authHandler.DeleteAccount))

	// Categories
	s.mux.HandleFunc("GET /categories", categories.ListCategoriesHandler(categoryStore, s.logger))
	s.mux.HandleFunc("POST /categories", protected.Wrap(categories.CreateCategoryHandler(categoryStore, s.logger)))

	// Tasks
	s.mux.HandleFunc("GET /tasks", protected.Wrap(taskHandler.List))
	s.mux.HandleFunc("POST /tasks", protected.Wrap(taskHandler.Create))
	s.mux.HandleFunc("GET /tasks/{id}", protected.Wrap(taskHandler.Get))
	s.mux.HandleFunc("PATCH /tasks/{id}", protected.Wrap(taskHandler.Update))
	s.mux.HandleFunc("DELETE /tasks/{id}", protected.Wrap(taskHandler.Delete))

	s.mux.HandleFunc("POST /analytics/events", protected.Wrap(analytics.TrackHandler(s.deps.Recorder, s.logger)))
}

// Handler returns the routes wrapped in the middleware chain:
// recover, request id, access log, timeout, CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"Idempotency-Key",
			"Accept-Language",
			"X-Request-Id",
			"X-Platform",
			"X-App-Version",
			"X-Device-Locale",
			"X-Session-Id",
			"X-Source-Event-Key",
		},
		ExposedHeaders: []string{RequestIDHeader},
	})

	var h http.Handler = c.Handler(http.HandlerFunc(s.route))
	h = withTimeout(h, s.cfg.RequestTimeout)
	h = withAccessLog(h, s.logger)
	h = withRequestID(h)
	h = withRecover(h, s.logger)
	return h
}

// route dispatches to the mux, answering unmatched requests with a JSON
// error instead of the mux's plain text.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	h, pattern := s.mux.Handler(r)
	if pattern != "" {
		s.mux.ServeHTTP(w, r)
		return
	}

	fallback := &discardWriter{header: http.Header{}}
	h.ServeHTTP(fallback, r)
	if fallback.status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", fallback.header.Get("Allow"))
		httpx.Error(w, r, s.logger, apperr.MethodNotAllowed())
		return
	}
	httpx.Error(w, r, s.logger, apperr.NotFound("Resource"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{"status": "ready"}
	// an open breaker degrades analytics only
	if state := s.deps.Recorder.BrokerState(); state != "" {
		body["analytics_broker"] = state
	}

	if err := s.deps.DB.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		body["status"] = "not_ready"
		httpx.JSON(w, http.StatusServiceUnavailable, body)
		return
	}
	httpx.JSON(w, http.StatusOK, body)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}
