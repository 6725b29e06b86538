package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/httpx"
	"priority-todo-backend/internal/validation"
)

const (
	minPasswordLen = 8
	// bcrypt ignores anything past 72 bytes
	maxPasswordBytes = 72
)

type Handler struct {
	users       *UserStore
	revocations RevocationStore
	secret      []byte
	tokenTTL    time.Duration
	logger      *slog.Logger
}

func NewHandler(users *UserStore, revocations RevocationStore, secret []byte, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		users:       users,
		revocations: revocations,
		secret:      secret,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req *registerRequest) validate() error {
	v := validation.New()

	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		v.AddRequired("email")
	} else if !isEmail(req.Email) {
		v.AddInvalid("email", "is not a valid e-mail address")
	}

	req.Username = strings.TrimSpace(req.Username)
	switch n := utf8.RuneCountInString(req.Username); {
	case n == 0:
		v.AddRequired("username")
	case n < 3 || n > 120:
		v.AddLength("username", 3, 120)
	case !validation.IsUsername(req.Username):
		v.AddInvalid("username", "must be alphanumeric (underscores and hyphens allowed)")
	}

	switch {
	case req.Password == "":
		v.AddRequired("password")
	case utf8.RuneCountInString(req.Password) < minPasswordLen:
		v.AddLength("password", minPasswordLen, 0)
	case len(req.Password) > maxPasswordBytes:
		v.AddInvalid("password", "must be at most 72 bytes long")
	}

	return v.Err()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, status int, message string, user User) {
	token, _, err := GenerateToken(h.secret, user.ID, h.tokenTTL)
	if err != nil {
		httpx.Error(w, r, h.logger, apperr.Internal("issue token", err))
		return
	}
	httpx.JSON(w, status, map[string]any{
		"message": message,
		"token":   token,
		"user":    user,
	})
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		httpx.Error(w, r, h.logger, apperr.Internal("hash password", err))
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Username, hash)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	h.issue(w, r, http.StatusCreated, "User registered successfully", user)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	v := validation.New()
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		v.AddRequired("email")
	}
	if req.Password == "" {
		v.AddRequired("password")
	}
	if err := v.Err(); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	user, err := h.users.ByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if err != nil || !CheckPassword(user.PasswordHash, req.Password) {
		httpx.Error(w, r, h.logger, apperr.Unauthorized("Invalid email or password"))
		return
	}

	h.issue(w, r, http.StatusOK, "Login successful", user)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, r, h.logger, apperr.Unauthorized("Authentication required"))
		return
	}

	user, err := h.users.ByID(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"user": user})
}
