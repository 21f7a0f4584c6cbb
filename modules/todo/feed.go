package todo

import (
	"context"
	"sync"

	"github.com/dmitrymomot/todokit/pkg/broadcast"
)

// Snapshot is the full current state of one user's list. Every change
// produces a complete snapshot; subscribers replace their view wholesale
// rather than patching it.
type Snapshot struct {
	UID   string `json:"uid"`
	Todos []Todo `json:"todos"`
}

// Feed fans snapshots out to realtime subscribers. The underlying
// broadcaster carries all users' snapshots; each Subscription filters down
// to its own user.
type Feed struct {
	broadcaster broadcast.Broadcaster[Snapshot]
	registry    *Registry
}

func NewFeed(b broadcast.Broadcaster[Snapshot], registry *Registry) *Feed {
	return &Feed{broadcaster: b, registry: registry}
}

// Publish sends a snapshot to every subscriber of its user.
func (f *Feed) Publish(ctx context.Context, snapshot Snapshot) error {
	return f.broadcaster.Broadcast(ctx, broadcast.Message[Snapshot]{Data: snapshot})
}

// Subscribe opens a snapshot stream for one user and registers it for
// sign-out teardown.
func (f *Feed) Subscribe(ctx context.Context, uid string) *Subscription {
	sub := &Subscription{
		uid:      uid,
		inner:    f.broadcaster.Subscribe(ctx),
		out:      make(chan Snapshot, 8),
		done:     make(chan struct{}),
		registry: f.registry,
	}
	f.registry.Add(uid, sub)
	go sub.pump(ctx)
	return sub
}

// Registry exposes the listener registry backing this feed.
func (f *Feed) Registry() *Registry {
	return f.registry
}

// Subscription is one user's live snapshot stream. Close is idempotent
// and always unregisters the subscription.
type Subscription struct {
	uid      string
	inner    broadcast.Subscriber[Snapshot]
	out      chan Snapshot
	done     chan struct{}
	once     sync.Once
	registry *Registry
}

// Updates returns the channel of snapshots for this user. The channel is
// closed when the subscription closes.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.out
}

// Close tears the subscription down. Safe to call any number of times and
// from any goroutine, including via Registry.CloseAll.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.registry.Remove(s.uid, s)
		close(s.done)
		_ = s.inner.Close()
	})
	return nil
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.out)

	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.inner.Receive(ctx):
			if !ok {
				return
			}
			if msg.Data.UID != s.uid {
				continue
			}
			select {
			case s.out <- msg.Data:
			case <-s.done:
				return
			}
		}
	}
}
