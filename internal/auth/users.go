package auth

import (
	"context"
	"database/sql"
	"time"

	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/db"
)

// User is an account. The e-mail is only shown to the user themselves.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserStore persists users.
type UserStore struct {
	db *db.DB
}

func NewUserStore(conn *db.DB) *UserStore {
	return &UserStore{db: conn}
}

const userColumns = `id, email, username, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// Create inserts a user. A taken e-mail or username is a validation error.
func (s *UserStore) Create(ctx context.Context, email, username, passwordHash string) (User, error) {
	var user User
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var taken int
		err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM users WHERE email = ?`), email).Scan(&taken)
		if err != nil {
			return apperr.Internal("check email", err)
		}
		if taken > 0 {
			return apperr.Validation("Email already registered", nil)
		}

		err = tx.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), username).Scan(&taken)
		if err != nil {
			return apperr.Internal("check username", err)
		}
		if taken > 0 {
			return apperr.Validation("Username already taken", nil)
		}

		now := db.Now()
		var id int64
		err = tx.QueryRowContext(ctx, s.db.Rebind(`
			INSERT INTO users (email, username, password_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`),
			email, username, passwordHash, now, now,
		).Scan(&id)
		if db.IsUniqueViolation(err) {
			return apperr.Validation("Email or username already registered", nil)
		}
		if err != nil {
			return apperr.Internal("create user", err)
		}

		user = User{
			ID:           id,
			Email:        email,
			Username:     username,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return nil
	})
	return user, err
}

// ByEmail returns NotFound when no account uses email.
func (s *UserStore) ByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email))
	if db.IsNoRows(err) {
		return User{}, apperr.NotFound("User")
	}
	if err != nil {
		return User{}, apperr.Internal("get user by email", err)
	}
	return user, nil
}

func (s *UserStore) ByID(ctx context.Context, id int64) (User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if db.IsNoRows(err) {
		return User{}, apperr.NotFound("User")
	}
	if err != nil {
		return User{}, apperr.Internal("get user", err)
	}
	return user, nil
}

// Delete removes the user with their tasks and analytics rows.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM tasks WHERE owner_id = ?`), id); err != nil {
			return apperr.Internal("delete tasks", err)
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM analytics_events WHERE user_id = ?`), id); err != nil {
			return apperr.Internal("delete analytics events", err)
		}
		res, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
		if err != nil {
			return apperr.Internal("delete user", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("User")
		}
		return nil
	})
}
