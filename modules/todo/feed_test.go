package todo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/todokit/modules/todo"
	"github.com/dmitrymomot/todokit/pkg/broadcast"
)

func newFeed(t *testing.T) *todo.Feed {
	t.Helper()

	broadcaster := broadcast.NewMemoryBroadcaster[todo.Snapshot](16)
	t.Cleanup(func() { _ = broadcaster.Close() })
	return todo.NewFeed(broadcaster, todo.NewRegistry())
}

func waitSnapshot(t *testing.T, sub *todo.Subscription) todo.Snapshot {
	t.Helper()

	select {
	case snapshot, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed before snapshot arrived")
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return todo.Snapshot{}
	}
}

func TestFeedFiltersByUser(t *testing.T) {
	t.Parallel()

	feed := newFeed(t)
	ctx := context.Background()

	sub := feed.Subscribe(ctx, "user-1")
	defer sub.Close()

	require.NoError(t, feed.Publish(ctx, todo.Snapshot{UID: "user-2", Todos: []todo.Todo{{ID: "x"}}}))
	require.NoError(t, feed.Publish(ctx, todo.Snapshot{UID: "user-1", Todos: []todo.Todo{{ID: "mine"}}}))

	snapshot := waitSnapshot(t, sub)
	assert.Equal(t, "user-1", snapshot.UID)
	require.Len(t, snapshot.Todos, 1)
	assert.Equal(t, "mine", snapshot.Todos[0].ID)
}

func TestSubscriptionCloseIdempotent(t *testing.T) {
	t.Parallel()

	feed := newFeed(t)
	sub := feed.Subscribe(context.Background(), "user-1")

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	assert.Equal(t, 0, feed.Registry().Count("user-1"))

	// Updates channel drains and closes after Close.
	select {
	case _, ok := <-sub.Updates():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("updates channel never closed")
	}
}

func TestRegistryCloseAllClosesSubscriptions(t *testing.T) {
	t.Parallel()

	feed := newFeed(t)
	ctx := context.Background()

	sub1 := feed.Subscribe(ctx, "user-1")
	sub2 := feed.Subscribe(ctx, "user-1")
	require.Equal(t, 2, feed.Registry().Count("user-1"))

	feed.Registry().CloseAll("user-1")

	for _, sub := range []*todo.Subscription{sub1, sub2} {
		select {
		case _, ok := <-sub.Updates():
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("subscription not closed by registry")
		}
	}
	assert.Equal(t, 0, feed.Registry().Count("user-1"))
}
