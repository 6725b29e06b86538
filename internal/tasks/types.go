package tasks

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Owner is the public view of a task's owner. It never carries the e-mail.
type Owner struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Task is a stored task plus its derived priority fields.
type Task struct {
	ID          int64   `json:"id"`
	Owner       Owner   `json:"owner"`
	CategoryID  *int64  `json:"category_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      Status  `json:"status"`
	Importance  int     `json:"importance"`
	Urgency     int     `json:"urgency"`

	PriorityScore   float64 `json:"priority_score"`
	ImportanceLabel string  `json:"importance_label"`
	UrgencyLabel    string  `json:"urgency_label"`
	ImportanceIcon  string  `json:"importance_icon"`
	UrgencyIcon     string  `json:"urgency_icon"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask is the create payload. Nil importance, urgency and status take
// their defaults.
type NewTask struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Importance  *int    `json:"importance,omitempty"`
	Urgency     *int    `json:"urgency,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
}

// Field is an optional patch value. Set records whether the key was present
// in the request, so an explicit null can be told apart from an omission.
type Field[T any] struct {
	Value T
	Set   bool
}

// Value returns a set Field holding v.
func Value[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	return json.Unmarshal(b, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// IsZero lets `omitzero` drop unset fields when encoding.
func (f Field[T]) IsZero() bool {
	return !f.Set
}

// Patch is a partial update; only set fields change.
type Patch struct {
	Title       Field[string]  `json:"title,omitzero"`
	Description Field[*string] `json:"description,omitzero"`
	Status      Field[Status]  `json:"status,omitzero"`
	Importance  Field[int]     `json:"importance,omitzero"`
	Urgency     Field[int]     `json:"urgency,omitzero"`
	CategoryID  Field[*int64]  `json:"category_id,omitzero"`
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set &&
		!p.Importance.Set && !p.Urgency.Set && !p.CategoryID.Set
}

// Fields names the set fields, in declaration order.
func (p Patch) Fields() []string {
	var out []string
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"title", p.Title.Set},
		{"description", p.Description.Set},
		{"status", p.Status.Set},
		{"importance", p.Importance.Set},
		{"urgency", p.Urgency.Set},
		{"category_id", p.CategoryID.Set},
	} {
		if f.set {
			out = append(out, f.name)
		}
	}
	return out
}

// Change is the result of an update.
type Change struct {
	Before Task
	After  Task
}
