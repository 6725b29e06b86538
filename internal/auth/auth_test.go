package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priority-todo-backend/internal/db/dbtest"
	"priority-todo-backend/internal/logging"
)

var testSecret = []byte("test-secret")

type authFixture struct {
	mux         *http.ServeMux
	users       *UserStore
	revocations *MemoryRevocations
}

func newFixture(t *testing.T) *authFixture {
	t.Helper()
	conn := dbtest.New(t)
	logger := logging.Discard()

	users := NewUserStore(conn)
	revocations := NewMemoryRevocations()
	h := NewHandler(users, revocations, testSecret, time.Hour, logger)
	mw := NewMiddleware(NewAuthenticator(testSecret, users, revocations), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /auth/me", mw.Wrap(h.Me))
	mux.HandleFunc("POST /auth/logout", mw.Wrap(h.Logout))
	mux.HandleFunc("DELETE /auth/account", mw.Wrap(h.DeleteAccount))

	return &authFixture{mux: mux, users: users, revocations: revocations}
}

func (f *authFixture) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (f *authFixture) register(t *testing.T, email, username string) string {
	t.Helper()
	status, body := f.do(t, http.MethodPost, "/auth/register", "",
		`{"email":"`+email+`","username":"`+username+`","password":"password123"}`)
	require.Equal(t, http.StatusCreated, status, body)
	return body["token"].(string)
}

func TestGenerateAndParseToken(t *testing.T) {
	token, claims, err := GenerateToken(testSecret, 42, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	parsed, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), parsed.UserID)
	assert.Equal(t, claims.ID, parsed.ID)

	_, err = ParseToken([]byte("other-secret"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Rejects(t *testing.T) {
	sign := func(method jwt.SigningMethod, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(testSecret)
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	valid := jwt.RegisteredClaims{
		ID:        "jti",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "other algorithm", token: sign(jwt.SigningMethodHS512, &Claims{UserID: 1, RegisteredClaims: valid})},
		{name: "expired", token: sign(jwt.SigningMethodHS256, &Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		}})},
		{name: "no expiry", token: sign(jwt.SigningMethodHS256, &Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ID: "jti"}})},
		{name: "no user", token: sign(jwt.SigningMethodHS256, &Claims{RegisteredClaims: valid})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(testSecret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)
	assert.True(t, CheckPassword(hash, "password123"))
	assert.False(t, CheckPassword(hash, "password124"))
}

func TestMemoryRevocations(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemoryRevocations()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Revoke(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, m.Revoke(ctx, "expired", now.Add(-time.Minute)))

	revoked, _ := m.IsRevoked(ctx, "a")
	assert.True(t, revoked)
	revoked, _ = m.IsRevoked(ctx, "expired")
	assert.False(t, revoked)
	revoked, _ = m.IsRevoked(ctx, "unknown")
	assert.False(t, revoked)

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	revoked, _ = m.IsRevoked(ctx, "a")
	assert.False(t, revoked, "revocation ends with the token's lifetime")
}

func TestRegisterLoginMe(t *testing.T) {
	f := newFixture(t)

	token := f.register(t, "Alice@Example.com", "alice")

	status, body := f.do(t, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password_hash")

	status, body = f.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["token"])
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", "alice")

	tests := []struct {
		name string
		body string
	}{
		{name: "duplicate email", body: `{"email":"alice@example.com","username":"alice2","password":"password123"}`},
		{name: "duplicate username", body: `{"email":"other@example.com","username":"alice","password":"password123"}`},
		{name: "bad email", body: `{"email":"not-an-email","username":"bob","password":"password123"}`},
		{name: "short username", body: `{"email":"bob@example.com","username":"bo","password":"password123"}`},
		{name: "username with spaces", body: `{"email":"bob@example.com","username":"bob smith","password":"password123"}`},
		{name: "short password", body: `{"email":"bob@example.com","username":"bob","password":"short"}`},
		{name: "missing fields", body: `{}`},
		{name: "unknown field", body: `{"email":"bob@example.com","username":"bob","password":"password123","admin":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", "alice")

	status, body := f.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body["error"])

	status, _ = f.do(t, http.MethodPost, "/auth/login", "", `{"email":"nobody@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMiddleware_RejectsMissingAndInvalidTokens(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Authentication required", body["error"])

	status, _ = f.do(t, http.MethodGet, "/auth/me", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	// a well-formed token for a user that does not exist
	token, _, err := GenerateToken(testSecret, 999, time.Hour)
	require.NoError(t, err)
	status, _ = f.do(t, http.MethodGet, "/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice@example.com", "alice")

	status, _ := f.do(t, http.MethodPost, "/auth/logout", token, "")
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(t, http.MethodGet, "/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has been revoked", body["error"])
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice@example.com", "alice")

	status, _ := f.do(t, http.MethodDelete, "/auth/account", token, "")
	require.Equal(t, http.StatusOK, status)

	_, err := f.users.ByEmail(context.Background(), "alice@example.com")
	assert.Error(t, err)

	status, _ = f.do(t, http.MethodGet, "/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
