package tasks

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/db"
	"priority-todo-backend/internal/priority"
	"priority-todo-backend/internal/validation"
)

const maxTitleLen = 200

// CategoryChecker verifies category references inside the caller's
// transaction.
type CategoryChecker interface {
	ExistsIn(ctx context.Context, q db.Querier, id int64) (bool, error)
}

// Store persists tasks. Every read and write is scoped to an owner; a task
// that belongs to someone else is reported exactly like a missing one.
type Store struct {
	db         *db.DB
	categories CategoryChecker
}

func NewStore(conn *db.DB, categories CategoryChecker) *Store {
	return &Store{db: conn, categories: categories}
}

const selectTask = `
	SELECT
		t.id,
		t.owner_id,
		u.username,
		t.category_id,
		t.title,
		t.description,
		t.status,
		t.importance,
		t.urgency,
		t.created_at,
		t.updated_at
	FROM tasks t
	JOIN users u ON u.id = t.owner_id
`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var (
		t        Task
		category sql.NullInt64
		desc     sql.NullString
	)
	err := row.Scan(
		&t.ID,
		&t.Owner.ID,
		&t.Owner.Username,
		&category,
		&t.Title,
		&desc,
		&t.Status,
		&t.Importance,
		&t.Urgency,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	if category.Valid {
		t.CategoryID = &category.Int64
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()

	if err := t.derive(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// derive fills the computed priority fields.
func (t *Task) derive() error {
	score, err := priority.Score(t.Importance, t.Urgency)
	if err != nil {
		return err
	}
	t.PriorityScore = score
	t.ImportanceLabel, _ = priority.Label(t.Importance)
	t.UrgencyLabel, _ = priority.Label(t.Urgency)
	t.ImportanceIcon, _ = priority.ImportanceIcon(t.Importance)
	t.UrgencyIcon, _ = priority.UrgencyIcon(t.Urgency)
	return nil
}

func (s *Store) get(ctx context.Context, q db.Querier, owner, id int64) (Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx,
		s.db.Rebind(selectTask+`WHERE t.owner_id = ? AND t.id = ?`), owner, id))
	if db.IsNoRows(err) {
		return Task{}, apperr.NotFound("Task")
	}
	if err != nil {
		return Task{}, apperr.Internal("get task", err)
	}
	return t, nil
}

// Get returns one of owner's tasks.
func (s *Store) Get(ctx context.Context, owner, id int64) (Task, error) {
	return s.get(ctx, s.db, owner, id)
}

// List returns all of owner's tasks, highest priority first.
func (s *Store) List(ctx context.Context, owner int64) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(selectTask+`WHERE t.owner_id = ?`), owner)
	if err != nil {
		return nil, apperr.Internal("list tasks", err)
	}
	defer rows.Close()

	result := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, apperr.Internal("scan task", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("list tasks", err)
	}

	SortByPriority(result)
	return result, nil
}

// SortByPriority orders tasks by priority score descending, then newest
// first, then by id descending.
func SortByPriority(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func validateLevel(v *validation.Errors, field string, level int) {
	if _, err := priority.ParseLevel(level); err != nil {
		v.AddInvalid(field, "must be an integer between 1 and 4")
	}
}

func validateStatus(v *validation.Errors, status Status) {
	if !status.IsValid() {
		v.AddInvalid("status", "must be one of pending, in_progress, completed")
	}
}

func (s *Store) checkCategory(ctx context.Context, q db.Querier, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := s.categories.ExistsIn(ctx, q, *id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("category_id does not exist", []validation.FieldError{
			{Field: "category_id", Message: "category_id does not exist"},
		})
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// Create validates in and stores a task owned by owner.
func (s *Store) Create(ctx context.Context, owner int64, in NewTask) (Task, error) {
	v := validation.New()
	title := v.RequireString("title", in.Title, maxTitleLen)

	importance := int(priority.Default)
	if in.Importance != nil {
		importance = *in.Importance
		validateLevel(v, "importance", importance)
	}
	urgency := int(priority.Default)
	if in.Urgency != nil {
		urgency = *in.Urgency
		validateLevel(v, "urgency", urgency)
	}
	status := StatusPending
	if in.Status != nil {
		status = *in.Status
		validateStatus(v, status)
	}
	if err := v.Err(); err != nil {
		return Task{}, err
	}

	var created Task
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.checkCategory(ctx, tx, in.CategoryID); err != nil {
			return err
		}

		now := db.Now()
		var id int64
		err := tx.QueryRowContext(ctx, s.db.Rebind(`
			INSERT INTO tasks (
				owner_id, category_id, title, description,
				status, importance, urgency,
				created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			owner, nullInt64(in.CategoryID), title, nullString(in.Description),
			string(status), importance, urgency,
			now, now,
		).Scan(&id)
		if err != nil {
			return apperr.Internal("create task", err)
		}

		created, err = s.get(ctx, tx, owner, id)
		return err
	})
	return created, err
}

// Update applies p and returns the updated task.
func (s *Store) Update(ctx context.Context, owner, id int64, p Patch) (Task, error) {
	change, err := s.Apply(ctx, owner, id, p)
	if err != nil {
		return Task{}, err
	}
	return change.After, nil
}

// Apply is Update that also returns the task as it was before. An empty
// patch writes nothing.
func (s *Store) Apply(ctx context.Context, owner, id int64, p Patch) (Change, error) {
	v := validation.New()
	var sets []string
	var args []any

	if p.Title.Set {
		title := v.RequireString("title", p.Title.Value, maxTitleLen)
		sets = append(sets, "title = ?")
		args = append(args, title)
	}
	if p.Description.Set {
		sets = append(sets, "description = ?")
		args = append(args, nullString(p.Description.Value))
	}
	if p.Status.Set {
		validateStatus(v, p.Status.Value)
		sets = append(sets, "status = ?")
		args = append(args, string(p.Status.Value))
	}
	if p.Importance.Set {
		validateLevel(v, "importance", p.Importance.Value)
		sets = append(sets, "importance = ?")
		args = append(args, p.Importance.Value)
	}
	if p.Urgency.Set {
		validateLevel(v, "urgency", p.Urgency.Value)
		sets = append(sets, "urgency = ?")
		args = append(args, p.Urgency.Value)
	}
	if p.CategoryID.Set {
		sets = append(sets, "category_id = ?")
		args = append(args, nullInt64(p.CategoryID.Value))
	}
	if err := v.Err(); err != nil {
		return Change{}, err
	}

	var change Change
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		before, err := s.get(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		change.Before = before

		if len(sets) == 0 {
			change.After = before
			return nil
		}

		if p.CategoryID.Set {
			if err := s.checkCategory(ctx, tx, p.CategoryID.Value); err != nil {
				return err
			}
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, db.Now(), id, owner)
		query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND owner_id = ?`
		if _, err := tx.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
			return apperr.Internal("update task", err)
		}

		change.After, err = s.get(ctx, tx, owner, id)
		return err
	})
	if err != nil {
		return Change{}, err
	}
	return change, nil
}

// Delete permanently removes one of owner's tasks.
func (s *Store) Delete(ctx context.Context, owner, id int64) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM tasks WHERE id = ? AND owner_id = ?`), id, owner)
		if err != nil {
			return apperr.Internal("delete task", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return apperr.Internal("delete task", err)
		}
		if n == 0 {
			return apperr.NotFound("Task")
		}
		return nil
	})
}
