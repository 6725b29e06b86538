package client

import (
	"context"
	"errors"
	"slices"
	"sync"

	"priority-todo-backend/internal/tasks"
)

// Notice is a dismissible message for the user.
type Notice struct {
	Message string
	Status  int
}

// Board holds the task list a UI renders. Every mutation goes to the server
// and is followed by a full re-fetch; nothing is patched locally. Failures
// are kept as a Notice until dismissed and are never retried.
type Board struct {
	client *Client

	mu     sync.Mutex
	tasks  []tasks.Task
	notice *Notice
}

func NewBoard(c *Client) *Board {
	return &Board{client: c}
}

// Tasks returns the last fetched list, highest priority first.
func (b *Board) Tasks() []tasks.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.tasks)
}

// Focus returns the highest priority task that is not completed.
func (b *Board) Focus() (tasks.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.Status != tasks.StatusCompleted {
			return t, true
		}
	}
	return tasks.Task{}, false
}

func (b *Board) Notice() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notice == nil {
		return Notice{}, false
	}
	return *b.notice, true
}

func (b *Board) Dismiss() {
	b.mu.Lock()
	b.notice = nil
	b.mu.Unlock()
}

func (b *Board) Refresh(ctx context.Context) error {
	list, err := b.client.ListTasks(ctx)
	if err != nil {
		return b.fail(err)
	}
	b.mu.Lock()
	b.tasks = list
	b.mu.Unlock()
	return nil
}

func (b *Board) Add(ctx context.Context, in tasks.NewTask) (tasks.Task, error) {
	t, err := b.client.CreateTask(ctx, in)
	if err != nil {
		return tasks.Task{}, b.fail(err)
	}
	return t, b.Refresh(ctx)
}

func (b *Board) Edit(ctx context.Context, id int64, p tasks.Patch) (tasks.Task, error) {
	t, err := b.client.UpdateTask(ctx, id, p)
	if err != nil {
		return tasks.Task{}, b.fail(err)
	}
	return t, b.Refresh(ctx)
}

// SetStatus is Edit with only the status set.
func (b *Board) SetStatus(ctx context.Context, id int64, status tasks.Status) (tasks.Task, error) {
	return b.Edit(ctx, id, tasks.Patch{Status: tasks.Value(status)})
}

func (b *Board) Remove(ctx context.Context, id int64) error {
	if err := b.client.DeleteTask(ctx, id); err != nil {
		return b.fail(err)
	}
	return b.Refresh(ctx)
}

func (b *Board) fail(err error) error {
	n := &Notice{Message: err.Error()}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		n.Message = apiErr.Message
		n.Status = apiErr.Status
	}

	b.mu.Lock()
	b.notice = n
	b.mu.Unlock()
	return err
}
