package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskbox/taskbox/internal/models"
	"github.com/taskbox/taskbox/internal/repository"
)

// fakeStore is an in-memory TodoStore with the same contract as the DynamoDB
// repository: nil item for absent lookups, sentinel errors on targeted writes,
// createdAt-descending list order.
type fakeStore struct {
	items map[string]map[string]models.TodoItem // userID -> todoID -> item
	err   error                                 // forced failure for every call when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]map[string]models.TodoItem)}
}

func (f *fakeStore) GetTodo(_ context.Context, userID, todoID string) (*models.TodoItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[userID][todoID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeStore) ListTodos(_ context.Context, userID string) ([]models.TodoItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	var items []models.TodoItem
	for _, item := range f.items[userID] {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})
	return items, nil
}

func (f *fakeStore) CreateTodo(_ context.Context, item *models.TodoItem) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.items[item.UserID][item.TodoID]; ok {
		return repository.ErrTodoAlreadyExists
	}
	if f.items[item.UserID] == nil {
		f.items[item.UserID] = make(map[string]models.TodoItem)
	}
	f.items[item.UserID][item.TodoID] = *item
	return nil
}

func (f *fakeStore) UpdateTodo(_ context.Context, userID, todoID string, update models.TodoUpdate) error {
	if f.err != nil {
		return f.err
	}
	item, ok := f.items[userID][todoID]
	if !ok {
		return repository.ErrTodoNotFound
	}
	item.Name = update.Name
	item.DueDate = update.DueDate
	item.Done = update.Done
	f.items[userID][todoID] = item
	return nil
}

func (f *fakeStore) DeleteTodo(_ context.Context, userID, todoID string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.items[userID], todoID)
	return nil
}

func (f *fakeStore) GenerateUploadURL(_ context.Context, userID, todoID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	item, ok := f.items[userID][todoID]
	if !ok {
		return "", repository.ErrTodoNotFound
	}
	item.AttachmentURL = repository.AttachmentURL("test-bucket", todoID)
	f.items[userID][todoID] = item
	return item.AttachmentURL + "?X-Amz-Signature=test", nil
}

type fakeCache struct {
	lists         map[string][]models.TodoItem
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{lists: make(map[string][]models.TodoItem)}
}

func (f *fakeCache) GetList(_ context.Context, userID string) ([]models.TodoItem, bool) {
	items, ok := f.lists[userID]
	return items, ok
}

func (f *fakeCache) SetList(_ context.Context, userID string, items []models.TodoItem) {
	f.lists[userID] = items
}

func (f *fakeCache) Invalidate(_ context.Context, userID string) {
	delete(f.lists, userID)
	f.invalidations++
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(store TodoStore, cache ListCache) *TodoService {
	return NewTodoService(store, cache, discardLogger())
}

// steppingClock returns a now func that advances one second per call.
func steppingClock() func() time.Time {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
}

func TestCreateTodo(t *testing.T) {
	t.Parallel()

	t.Run("persists server-generated fields", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := newTestService(store, nil)
		svc.now = func() time.Time {
			return time.Date(2025, 6, 1, 12, 0, 0, 123_000_000, time.UTC)
		}

		created, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{
			Name:    "water the plants",
			DueDate: "2025-06-02",
		}, "user-1")
		require.NoError(t, err)

		assert.NotEmpty(t, created.TodoID)
		assert.Equal(t, "user-1", created.UserID)
		assert.Equal(t, "water the plants", created.Name)
		assert.Equal(t, "2025-06-02", created.DueDate)
		assert.False(t, created.Done)
		assert.Empty(t, created.AttachmentURL)
		assert.Equal(t, "2025-06-01T12:00:00.123Z", created.CreatedAt)

		_, err = time.Parse(time.RFC3339, created.CreatedAt)
		assert.NoError(t, err, "createdAt must parse as ISO-8601")

		got, err := svc.GetTodo(context.Background(), "user-1", created.TodoID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, *created, *got)
	})

	t.Run("generates distinct ids", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(newFakeStore(), nil)

		seen := make(map[string]bool)
		for i := 0; i < 10; i++ {
			created, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "x"}, "user-1")
			require.NoError(t, err)
			assert.False(t, seen[created.TodoID], "duplicate todoId %s", created.TodoID)
			seen[created.TodoID] = true
		}
	})

	t.Run("propagates store failure", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.err = errors.New("store unavailable")
		svc := newTestService(store, nil)

		_, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "x"}, "user-1")
		assert.ErrorIs(t, err, store.err)
	})
}

func TestGetTodos(t *testing.T) {
	t.Parallel()

	t.Run("orders by creation time descending", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := newTestService(store, nil)
		svc.now = steppingClock()

		var names []string
		for i := 0; i < 4; i++ {
			name := fmt.Sprintf("item-%d", i)
			names = append(names, name)
			_, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: name}, "user-1")
			require.NoError(t, err)
		}

		items, err := svc.GetTodos(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, items, 4)
		for i, item := range items {
			assert.Equal(t, names[len(names)-1-i], item.Name, "position %d", i)
		}
	})

	t.Run("isolates users from each other", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(newFakeStore(), nil)

		// Identical content under two owners must stay separate.
		_, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "shared name"}, "user-1")
		require.NoError(t, err)
		_, err = svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "shared name"}, "user-2")
		require.NoError(t, err)

		items1, err := svc.GetTodos(context.Background(), "user-1")
		require.NoError(t, err)
		items2, err := svc.GetTodos(context.Background(), "user-2")
		require.NoError(t, err)

		require.Len(t, items1, 1)
		require.Len(t, items2, 1)
		assert.Equal(t, "user-1", items1[0].UserID)
		assert.Equal(t, "user-2", items2[0].UserID)
		assert.NotEqual(t, items1[0].TodoID, items2[0].TodoID)
	})

	t.Run("empty for unknown user", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(newFakeStore(), nil)

		items, err := svc.GetTodos(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestGetTodo_AbsentIsNilNotError(t *testing.T) {
	t.Parallel()
	svc := newTestService(newFakeStore(), nil)

	item, err := svc.GetTodo(context.Background(), "user-1", "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestUpdateTodo(t *testing.T) {
	t.Parallel()

	t.Run("overwrites exactly the mutable fields", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := newTestService(store, nil)

		created, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{
			Name:    "original",
			DueDate: "2025-06-02",
		}, "user-1")
		require.NoError(t, err)

		err = svc.UpdateTodo(context.Background(), models.UpdateTodoRequest{
			Name:    "X",
			DueDate: "2025-01-01",
			Done:    true,
		}, "user-1", created.TodoID)
		require.NoError(t, err)

		got, err := svc.GetTodo(context.Background(), "user-1", created.TodoID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, "X", got.Name)
		assert.Equal(t, "2025-01-01", got.DueDate)
		assert.True(t, got.Done)
		assert.Equal(t, created.TodoID, got.TodoID)
		assert.Equal(t, created.UserID, got.UserID)
		assert.Equal(t, created.CreatedAt, got.CreatedAt)
	})

	t.Run("missing item surfaces not-found", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(newFakeStore(), nil)

		err := svc.UpdateTodo(context.Background(), models.UpdateTodoRequest{Name: "X"}, "user-1", "no-such-id")
		assert.ErrorIs(t, err, repository.ErrTodoNotFound)
	})
}

func TestDeleteTodo(t *testing.T) {
	t.Parallel()

	t.Run("removes the item and stays idempotent", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(newFakeStore(), nil)

		created, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "gone soon"}, "user-1")
		require.NoError(t, err)

		require.NoError(t, svc.DeleteTodo(context.Background(), "user-1", created.TodoID))

		got, err := svc.GetTodo(context.Background(), "user-1", created.TodoID)
		require.NoError(t, err)
		assert.Nil(t, got)

		// Deleting again must not fail.
		assert.NoError(t, svc.DeleteTodo(context.Background(), "user-1", created.TodoID))
	})
}

func TestGenerateUploadURL(t *testing.T) {
	t.Parallel()

	t.Run("returns a per-item URL and records the attachment location", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(newFakeStore(), nil)

		first, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "a"}, "user-1")
		require.NoError(t, err)
		second, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "b"}, "user-1")
		require.NoError(t, err)

		url1, err := svc.GenerateUploadURL(context.Background(), "user-1", first.TodoID)
		require.NoError(t, err)
		url2, err := svc.GenerateUploadURL(context.Background(), "user-1", second.TodoID)
		require.NoError(t, err)

		assert.Contains(t, url1, first.TodoID)
		assert.NotEqual(t, url1, url2)

		got, err := svc.GetTodo(context.Background(), "user-1", first.TodoID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, repository.AttachmentURL("test-bucket", first.TodoID), got.AttachmentURL)
	})

	t.Run("missing item surfaces not-found", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(newFakeStore(), nil)

		_, err := svc.GenerateUploadURL(context.Background(), "user-1", "no-such-id")
		assert.ErrorIs(t, err, repository.ErrTodoNotFound)
	})
}

func TestListCache(t *testing.T) {
	t.Parallel()

	t.Run("hit bypasses the store, miss fills the cache", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		cache := newFakeCache()
		svc := newTestService(store, cache)

		created, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "cached"}, "user-1")
		require.NoError(t, err)

		items, err := svc.GetTodos(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, items, 1)

		// A store outage is now invisible for reads.
		store.err = errors.New("store unavailable")
		items, err = svc.GetTodos(context.Background(), "user-1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, created.TodoID, items[0].TodoID)
	})

	t.Run("every write invalidates the user's list", func(t *testing.T) {
		t.Parallel()
		cache := newFakeCache()
		svc := newTestService(newFakeStore(), cache)

		created, err := svc.CreateTodo(context.Background(), models.CreateTodoRequest{Name: "a"}, "user-1")
		require.NoError(t, err)

		_, err = svc.GetTodos(context.Background(), "user-1")
		require.NoError(t, err)
		_, ok := cache.lists["user-1"]
		require.True(t, ok)

		require.NoError(t, svc.UpdateTodo(context.Background(), models.UpdateTodoRequest{Name: "b"}, "user-1", created.TodoID))
		_, ok = cache.lists["user-1"]
		assert.False(t, ok, "update must drop the cached list")

		_, err = svc.GetTodos(context.Background(), "user-1")
		require.NoError(t, err)
		require.NoError(t, svc.DeleteTodo(context.Background(), "user-1", created.TodoID))
		_, ok = cache.lists["user-1"]
		assert.False(t, ok, "delete must drop the cached list")
	})
}
