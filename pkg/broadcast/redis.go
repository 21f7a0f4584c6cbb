package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster distributes messages across server instances through a
// Redis pub/sub channel. Messages are JSON-encoded on the wire; local
// delivery reuses the in-memory broadcaster, so slow-consumer semantics
// match MemoryBroadcaster.
type RedisBroadcaster[T any] struct {
	client  *redis.Client
	channel string
	local   *MemoryBroadcaster[T]
	pubsub  *redis.PubSub
	once    sync.Once
}

// NewRedisBroadcaster subscribes to the given Redis channel and returns a
// broadcaster that fans inbound messages out to local subscribers. The
// subscription is confirmed before returning so callers never miss messages
// published after construction.
func NewRedisBroadcaster[T any](ctx context.Context, client *redis.Client, channel string, bufferSize int) (*RedisBroadcaster[T], error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}

	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Join(ErrSubscribeFailed, err)
	}

	b := &RedisBroadcaster[T]{
		client:  client,
		channel: channel,
		local:   NewMemoryBroadcaster[T](bufferSize),
		pubsub:  pubsub,
	}

	go b.pump()

	return b, nil
}

// pump relays messages from Redis to local subscribers until the pubsub
// connection is closed.
func (b *RedisBroadcaster[T]) pump() {
	for msg := range b.pubsub.Channel() {
		var data T
		if err := json.Unmarshal([]byte(msg.Payload), &data); err != nil {
			// Malformed payloads are dropped; there is no caller to
			// report them to on this path.
			continue
		}
		_ = b.local.Broadcast(context.Background(), Message[T]{Data: data})
	}
}

// Subscribe creates a local subscriber receiving messages published on the
// Redis channel by any instance.
func (b *RedisBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	return b.local.Subscribe(ctx)
}

// Broadcast publishes the message to the Redis channel. Delivery to local
// subscribers happens through the same pub/sub round trip as for remote
// instances, keeping ordering identical everywhere.
func (b *RedisBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	payload, err := json.Marshal(msg.Data)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Close terminates the Redis subscription and closes all local subscribers.
// Safe to call multiple times.
func (b *RedisBroadcaster[T]) Close() error {
	var err error
	b.once.Do(func() {
		err = b.pubsub.Close()
		_ = b.local.Close()
	})
	return err
}

var _ Broadcaster[any] = (*RedisBroadcaster[any])(nil)
