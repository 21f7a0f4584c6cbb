package todo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/todokit/modules/todo"
	"github.com/dmitrymomot/todokit/pkg/broadcast"
)

func newService(t *testing.T) (*todo.Service, *todo.Feed) {
	t.Helper()

	broadcaster := broadcast.NewMemoryBroadcaster[todo.Snapshot](16)
	t.Cleanup(func() { _ = broadcaster.Close() })

	feed := todo.NewFeed(broadcaster, todo.NewRegistry())
	return todo.NewService(todo.NewMemoryRepository(), feed), feed
}

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)

	t.Run("creates with generated id and timestamp", func(t *testing.T) {
		t.Parallel()

		item, err := svc.Create(context.Background(), "user-1", "  buy milk  ")
		require.NoError(t, err)

		assert.Equal(t, "buy milk", item.Name)
		assert.False(t, item.Completed)
		assert.Equal(t, "user-1", item.UID)
		assert.False(t, item.CreateAt.IsZero())
		_, err = uuid.Parse(item.ID)
		assert.NoError(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		t.Parallel()

		_, err := svc.Create(context.Background(), "user-1", "   ")
		require.ErrorIs(t, err, todo.ErrEmptyName)
	})

	t.Run("normalizes name to NFC", func(t *testing.T) {
		t.Parallel()

		// "café" with a combining acute accent collapses to the
		// precomposed form.
		item, err := svc.Create(context.Background(), "user-1", "café run")
		require.NoError(t, err)
		assert.Equal(t, "café run", item.Name)
	})
}

func TestServiceListOrderingAndScoping(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "user-1", "first")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Create(ctx, "user-1", "second")
	require.NoError(t, err)

	other, err := svc.Create(ctx, "user-2", "not yours")
	require.NoError(t, err)

	items, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Newest first.
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)

	// Another user's item reads as missing even with a valid id.
	_, err = svc.Get(ctx, "user-1", other.ID)
	require.ErrorIs(t, err, todo.ErrTodoNotFound)

	_, err = svc.Update(ctx, "user-1", other.ID, todo.Patch{Completed: ptr(true)})
	require.ErrorIs(t, err, todo.ErrTodoNotFound)

	err = svc.Delete(ctx, "user-1", other.ID)
	require.ErrorIs(t, err, todo.ErrTodoNotFound)
}

func TestServiceUpdate(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, "user-1", "original")
	require.NoError(t, err)

	t.Run("partial patch", func(t *testing.T) {
		updated, err := svc.Update(ctx, "user-1", item.ID, todo.Patch{Completed: ptr(true)})
		require.NoError(t, err)
		assert.True(t, updated.Completed)
		assert.Equal(t, "original", updated.Name)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := svc.Update(ctx, "user-1", "not-a-uuid", todo.Patch{})
		require.ErrorIs(t, err, todo.ErrInvalidID)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, "user-1", item.ID, todo.Patch{Name: ptr(" ")})
		require.ErrorIs(t, err, todo.ErrEmptyName)
	})

	t.Run("rename normalizes the name", func(t *testing.T) {
		updated, err := svc.Update(ctx, "user-1", item.ID, todo.Patch{Name: ptr("  café  ")})
		require.NoError(t, err)
		assert.Equal(t, "café", updated.Name)
	})
}

func TestServiceWatch(t *testing.T) {
	t.Parallel()

	svc, feed := newService(t)
	ctx := context.Background()

	seed, err := svc.Create(ctx, "user-1", "existing")
	require.NoError(t, err)

	initial, sub, err := svc.Watch(ctx, "user-1")
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, initial.Todos, 1)
	assert.Equal(t, seed.ID, initial.Todos[0].ID)
	assert.Equal(t, 1, feed.Registry().Count("user-1"))

	// A change in another user's list never reaches this subscription.
	_, err = svc.Create(ctx, "user-2", "other")
	require.NoError(t, err)

	created, err := svc.Create(ctx, "user-1", "new item")
	require.NoError(t, err)

	select {
	case snapshot := <-sub.Updates():
		require.Len(t, snapshot.Todos, 2)
		assert.Equal(t, created.ID, snapshot.Todos[0].ID)
		assert.Equal(t, "user-1", snapshot.UID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}

	require.NoError(t, sub.Close())
	assert.Equal(t, 0, feed.Registry().Count("user-1"))
}

func TestServiceDeleteByUser(t *testing.T) {
	t.Parallel()

	svc, feed := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", "one")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", "two")
	require.NoError(t, err)

	_, sub, err := svc.Watch(ctx, "user-1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, svc.DeleteByUser(ctx, "user-1"))

	items, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, feed.Registry().Count("user-1"))
}

func ptr[T any](v T) *T { return &v }
