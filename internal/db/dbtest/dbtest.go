// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"

	"priority-todo-backend/internal/db"
)

// New returns a fresh, migrated in-memory SQLite database that is closed
// when the test ends.
func New(t testing.TB) *db.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := db.Open(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if _, err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return conn
}

// CreateUser inserts a user row directly and returns its id.
func CreateUser(t testing.TB, conn *db.DB, username string) int64 {
	t.Helper()

	now := db.Now()
	var id int64
	err := conn.QueryRowContext(context.Background(),
		conn.Rebind(`INSERT INTO users (email, username, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`),
		username+"@example.com", username, "not-a-real-hash", now, now,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return id
}
