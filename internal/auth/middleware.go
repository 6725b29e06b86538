package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"priority-todo-backend/internal/analytics"
	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/httpx"
	"priority-todo-backend/internal/logging"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// Authenticator turns a bearer token into an Identity.
type Authenticator struct {
	secret      []byte
	users       *UserStore
	revocations RevocationStore
}

func NewAuthenticator(secret []byte, users *UserStore, revocations RevocationStore) *Authenticator {
	return &Authenticator{secret: secret, users: users, revocations: revocations}
}

// Authenticate checks the bearer token's signature, expiry and revocation,
// and that its user still exists.
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return Identity{}, apperr.Unauthorized("Authentication required")
	}

	claims, err := ParseToken(a.secret, strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
	if err != nil {
		return Identity{}, apperr.Unauthorized("Invalid or expired token")
	}

	revoked, err := a.revocations.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		return Identity{}, apperr.Internal("check token revocation", err)
	}
	if revoked {
		return Identity{}, apperr.Unauthorized("Token has been revoked")
	}

	if _, err := a.users.ByID(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Identity{}, apperr.Unauthorized("Invalid or expired token")
		}
		return Identity{}, err
	}

	return Identity{
		UserID:    claims.UserID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

type Middleware struct {
	auth   *Authenticator
	logger *slog.Logger
}

func NewMiddleware(auth *Authenticator, logger *slog.Logger) Middleware {
	return Middleware{auth: auth, logger: logger}
}

// Wrap rejects unauthenticated requests with 401 before next runs.
func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.auth.Authenticate(r)
		if err != nil {
			httpx.Error(w, r, m.logger, err)
			return
		}

		ctx := WithIdentity(r.Context(), identity)

		// the analytics recorder attributes events to this user
		ctx = analytics.WithUserID(ctx, identity.UserID)

		logger := logging.FromContext(ctx, m.logger).With("user_id", identity.UserID)
		ctx = logging.WithLogger(ctx, logger)

		next(w, r.WithContext(ctx))
	}
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return 0, false
	}
	return identity.UserID, true
}
