package categories

import (
	"context"
	"database/sql"
	"strings"

	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/db"
	"priority-todo-backend/internal/validation"
)

const maxNameLen = 100

type Store struct {
	db *db.DB
}

func NewStore(conn *db.DB) *Store {
	return &Store{db: conn}
}

// List returns every category ordered by name.
func (s *Store) List(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at
		FROM categories
		ORDER BY name, id`)
	if err != nil {
		return nil, apperr.Internal("list categories", err)
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, apperr.Internal("scan category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list categories", err)
	}
	return out, nil
}

// Create validates and inserts a category. Names are unique.
func (s *Store) Create(ctx context.Context, in NewCategory) (Category, error) {
	v := validation.New()
	name := v.RequireString("name", in.Name, maxNameLen)
	if err := v.Err(); err != nil {
		return Category{}, err
	}
	var desc sql.NullString
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		desc = sql.NullString{String: strings.TrimSpace(*in.Description), Valid: true}
	}

	var c Category
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var taken int
		err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM categories WHERE name = ?`), name).Scan(&taken)
		if err != nil {
			return apperr.Internal("check category name", err)
		}
		if taken > 0 {
			return apperr.Validation("Category already exists", nil)
		}

		now := db.Now()
		var id int64
		err = tx.QueryRowContext(ctx, s.db.Rebind(`
			INSERT INTO categories (name, description, created_at)
			VALUES (?, ?, ?)
			RETURNING id`),
			name, desc, now,
		).Scan(&id)
		if db.IsUniqueViolation(err) {
			return apperr.Validation("Category already exists", nil)
		}
		if err != nil {
			return apperr.Internal("create category", err)
		}

		c = Category{ID: id, Name: name, CreatedAt: now}
		if desc.Valid {
			c.Description = &desc.String
		}
		return nil
	})
	return c, err
}

// ExistsIn reports whether a category with id exists, querying through q
// (typically the caller's transaction).
func (s *Store) ExistsIn(ctx context.Context, q db.Querier, id int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM categories WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, apperr.Internal("check category", err)
	}
	return n > 0, nil
}

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var (
		c    Category
		desc sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt); err != nil {
		return Category{}, err
	}
	if desc.Valid {
		c.Description = &desc.String
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}
