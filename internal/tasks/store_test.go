package tasks

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priority-todo-backend/internal/apperr"
	"priority-todo-backend/internal/categories"
	"priority-todo-backend/internal/db"
	"priority-todo-backend/internal/db/dbtest"
)

type storeFixture struct {
	conn       *db.DB
	store      *Store
	categories *categories.Store
	alice      int64
	bob        int64
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	conn := dbtest.New(t)
	cats := categories.NewStore(conn)
	return &storeFixture{
		conn:       conn,
		store:      NewStore(conn, cats),
		categories: cats,
		alice:      dbtest.CreateUser(t, conn, "alice"),
		bob:        dbtest.CreateUser(t, conn, "bob"),
	}
}

func ptr[T any](v T) *T { return &v }

func (f *storeFixture) countTasks(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.conn.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&n))
	return n
}

func TestStore_CreateDefaults(t *testing.T) {
	f := newStoreFixture(t)

	task, err := f.store.Create(context.Background(), f.alice, NewTask{Title: "Buy milk"})
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, 2, task.Importance)
	assert.Equal(t, 2, task.Urgency)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 2.0, task.PriorityScore)
	assert.Equal(t, "Medium", task.ImportanceLabel)
	assert.Equal(t, "Medium", task.UrgencyLabel)
	assert.Contains(t, task.ImportanceIcon, "<svg")
	assert.Nil(t, task.Description)
	assert.Nil(t, task.CategoryID)
	assert.Equal(t, Owner{ID: f.alice, Username: "alice"}, task.Owner)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestStore_CreateThenGetRoundTrip(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, f.alice, NewTask{Title: "X", Importance: ptr(3), Urgency: ptr(2)})
	require.NoError(t, err)

	got, err := f.store.Get(ctx, f.alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", got.Title)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 3, got.Importance)
	assert.Equal(t, 2, got.Urgency)
	assert.Equal(t, 2.6, got.PriorityScore)
	assert.Equal(t, "High", got.ImportanceLabel)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestStore_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input NewTask
		field string
	}{
		{name: "empty title", input: NewTask{Title: ""}, field: "title"},
		{name: "blank title", input: NewTask{Title: "   "}, field: "title"},
		{name: "long title", input: NewTask{Title: strings.Repeat("a", 201)}, field: "title"},
		{name: "importance zero", input: NewTask{Title: "x", Importance: ptr(0)}, field: "importance"},
		{name: "importance five", input: NewTask{Title: "x", Importance: ptr(5)}, field: "importance"},
		{name: "urgency negative", input: NewTask{Title: "x", Urgency: ptr(-1)}, field: "urgency"},
		{name: "unknown status", input: NewTask{Title: "x", Status: ptr(Status("done"))}, field: "status"},
		{name: "unknown category", input: NewTask{Title: "x", CategoryID: ptr(int64(404))}, field: "category_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreFixture(t)

			_, err := f.store.Create(context.Background(), f.alice, tt.input)
			require.Error(t, err)

			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.TypeValidation, appErr.Type)
			assert.Contains(t, appErr.Message, tt.field)
			assert.Zero(t, f.countTasks(t), "nothing persisted")
		})
	}
}

func TestStore_CreateWithCategoryAndDescription(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	work, err := f.categories.Create(ctx, categories.NewCategory{Name: "Work"})
	require.NoError(t, err)

	task, err := f.store.Create(ctx, f.alice, NewTask{
		Title:       "Write report",
		Description: ptr("quarterly numbers"),
		Status:      ptr(StatusInProgress),
		CategoryID:  &work.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, task.CategoryID)
	assert.Equal(t, work.ID, *task.CategoryID)
	require.NotNil(t, task.Description)
	assert.Equal(t, "quarterly numbers", *task.Description)
	assert.Equal(t, StatusInProgress, task.Status)
}

func TestStore_OwnershipIsolation(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	mine, err := f.store.Create(ctx, f.alice, NewTask{Title: "alice task"})
	require.NoError(t, err)
	_, err = f.store.Create(ctx, f.bob, NewTask{Title: "bob task"})
	require.NoError(t, err)

	list, err := f.store.List(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice task", list[0].Title)

	_, err = f.store.Get(ctx, f.bob, mine.ID)
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))

	_, err = f.store.Update(ctx, f.bob, mine.ID, Patch{Title: Value("hijacked")})
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))

	err = f.store.Delete(ctx, f.bob, mine.ID)
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))

	got, err := f.store.Get(ctx, f.alice, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice task", got.Title)
}

func TestStore_ForeignAndMissingAreIndistinguishable(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	mine, err := f.store.Create(ctx, f.alice, NewTask{Title: "alice task"})
	require.NoError(t, err)

	_, foreignErr := f.store.Get(ctx, f.bob, mine.ID)
	_, missingErr := f.store.Get(ctx, f.bob, mine.ID+1000)
	assert.Equal(t, foreignErr.Error(), missingErr.Error())
}

func TestStore_ListOrdering(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	create := func(title string, importance, urgency int) Task {
		task, err := f.store.Create(ctx, f.alice, NewTask{Title: title, Importance: &importance, Urgency: &urgency})
		require.NoError(t, err)
		return task
	}
	setCreated := func(id int64, at time.Time) {
		_, err := f.conn.Exec("UPDATE tasks SET created_at = ? WHERE id = ?", at, id)
		require.NoError(t, err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	low := create("low", 1, 1)       // 1.0
	urgent := create("urgent", 2, 3) // 2.4
	important := create("imp", 3, 2) // 2.6
	older := create("older", 2, 2)   // 2.0
	newer := create("newer", 2, 2)   // 2.0
	twinA := create("twin-a", 2, 2)  // 2.0, same created_at as twinB
	twinB := create("twin-b", 2, 2)  // 2.0
	critical := create("crit", 4, 4) // 4.0

	setCreated(older.ID, base)
	setCreated(newer.ID, base.Add(2*time.Hour))
	setCreated(twinA.ID, base.Add(time.Hour))
	setCreated(twinB.ID, base.Add(time.Hour))

	list, err := f.store.List(ctx, f.alice)
	require.NoError(t, err)

	var ids []int64
	for _, task := range list {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{
		critical.ID,
		important.ID,
		urgent.ID,
		newer.ID,
		twinB.ID,
		twinA.ID,
		older.ID,
		low.ID,
	}, ids)
}

func TestStore_ListEmpty(t *testing.T) {
	f := newStoreFixture(t)

	list, err := f.store.List(context.Background(), f.alice)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestStore_UpdatePartial(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, f.alice, NewTask{Title: "Draft", Description: ptr("notes")})
	require.NoError(t, err)

	updated, err := f.store.Update(ctx, f.alice, created.ID, Patch{
		Importance: Value(4),
		Status:     Value(StatusCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, "Draft", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "notes", *updated.Description)
	assert.Equal(t, 4, updated.Importance)
	assert.Equal(t, 2, updated.Urgency)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.Equal(t, 3.2, updated.PriorityScore)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func TestStore_UpdateClearsDescriptionWithNull(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, f.alice, NewTask{Title: "Draft", Description: ptr("notes")})
	require.NoError(t, err)

	var patch Patch
	require.NoError(t, json.Unmarshal([]byte(`{"description":null}`), &patch))
	require.True(t, patch.Description.Set)

	updated, err := f.store.Update(ctx, f.alice, created.ID, patch)
	require.NoError(t, err)
	assert.Nil(t, updated.Description)
	assert.Equal(t, "Draft", updated.Title)
}

func TestStore_UpdateValidationWritesNothing(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, f.alice, NewTask{Title: "Draft"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		patch Patch
	}{
		{name: "empty title", patch: Patch{Title: Value(""), Importance: Value(3)}},
		{name: "importance out of range", patch: Patch{Title: Value("ok"), Importance: Value(7)}},
		{name: "urgency zero", patch: Patch{Urgency: Value(0)}},
		{name: "bad status", patch: Patch{Status: Value(Status("archived"))}},
		{name: "unknown category", patch: Patch{Title: Value("ok"), CategoryID: Value(ptr(int64(99)))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.store.Update(ctx, f.alice, created.ID, tt.patch)
			assert.True(t, apperr.IsType(err, apperr.TypeValidation), "got %v", err)

			got, err := f.store.Get(ctx, f.alice, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Draft", got.Title)
			assert.Equal(t, 2, got.Importance)
		})
	}
}

func TestStore_ApplyReportsBeforeAndAfter(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, f.alice, NewTask{Title: "Draft"})
	require.NoError(t, err)

	change, err := f.store.Apply(ctx, f.alice, created.ID, Patch{Status: Value(StatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, change.Before.Status)
	assert.Equal(t, StatusCompleted, change.After.Status)

	change, err = f.store.Apply(ctx, f.alice, created.ID, Patch{})
	require.NoError(t, err)
	assert.Equal(t, change.Before, change.After)
}

func TestStore_UpdateMissing(t *testing.T) {
	f := newStoreFixture(t)

	_, err := f.store.Update(context.Background(), f.alice, 12345, Patch{Title: Value("x")})
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
}

func TestStore_DeleteThenGet(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, f.alice, NewTask{Title: "Temp"})
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(ctx, f.alice, created.ID))

	_, err = f.store.Get(ctx, f.alice, created.ID)
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))

	err = f.store.Delete(ctx, f.alice, created.ID)
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
}

func TestStore_CancelledContextLeavesNoWrite(t *testing.T) {
	f := newStoreFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.store.Create(ctx, f.alice, NewTask{Title: "never"})
	require.Error(t, err)
	assert.Zero(t, f.countTasks(t))
}

func TestSortByPriority(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	list := []Task{
		{ID: 1, PriorityScore: 2.0, CreatedAt: at},
		{ID: 2, PriorityScore: 3.4, CreatedAt: at},
		{ID: 3, PriorityScore: 2.0, CreatedAt: at.Add(time.Minute)},
		{ID: 4, PriorityScore: 2.0, CreatedAt: at},
	}

	SortByPriority(list)

	var ids []int64
	for _, task := range list {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{2, 3, 4, 1}, ids)
}

func TestPatch_JSON(t *testing.T) {
	var patch Patch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"New","importance":3}`), &patch))
	assert.True(t, patch.Title.Set)
	assert.Equal(t, "New", patch.Title.Value)
	assert.True(t, patch.Importance.Set)
	assert.False(t, patch.Urgency.Set)
	assert.False(t, patch.Description.Set)
	assert.Equal(t, []string{"title", "importance"}, patch.Fields())

	out, err := json.Marshal(Patch{Status: Value(StatusCompleted), Description: Value[*string](nil)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"completed","description":null}`, string(out))

	assert.True(t, Patch{}.IsEmpty())
}
