package todo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/todokit/pkg/logger"
	"github.com/dmitrymomot/todokit/pkg/sanitizer"
)

// Service implements the todo operations. Every mutation writes through
// to the repository first, then publishes a fresh snapshot of the user's
// list to the feed. There is no optimistic local state: the snapshot read
// back from storage is the truth subscribers see.
type Service struct {
	repo   Repository
	feed   *Feed
	logger *slog.Logger
}

type ServiceOption func(*Service)

// WithServiceLogger sets a custom logger for the service.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(repo Repository, feed *Feed, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		feed:   feed,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a todo for the user and publishes the updated snapshot.
func (s *Service) Create(ctx context.Context, uid, name string) (*Todo, error) {
	name = sanitizer.NormalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	item := &Todo{
		ID:        uuid.NewString(),
		Name:      name,
		Completed: false,
		CreateAt:  time.Now().UTC(),
		UID:       uid,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}

	s.publish(ctx, uid)
	return item, nil
}

// Get returns one todo. An id belonging to another user reads as missing.
func (s *Service) Get(ctx context.Context, uid, id string) (*Todo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, uid, id)
}

// List returns the user's todos, newest first.
func (s *Service) List(ctx context.Context, uid string) ([]Todo, error) {
	return s.repo.List(ctx, uid)
}

// Update applies a partial change and publishes the updated snapshot.
func (s *Service) Update(ctx context.Context, uid, id string, patch Patch) (*Todo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		normalized := sanitizer.NormalizeName(*patch.Name)
		if normalized == "" {
			return nil, ErrEmptyName
		}
		patch.Name = &normalized
	}

	item, err := s.repo.Update(ctx, uid, id, patch)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, uid)
	return item, nil
}

// Delete removes a todo and publishes the updated snapshot.
func (s *Service) Delete(ctx context.Context, uid, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, uid, id); err != nil {
		return err
	}

	s.publish(ctx, uid)
	return nil
}

// DeleteByUser removes everything the user owns and closes their
// listeners. Called from account deletion.
func (s *Service) DeleteByUser(ctx context.Context, uid string) error {
	if err := s.repo.DeleteByUser(ctx, uid); err != nil {
		return err
	}
	s.feed.Registry().CloseAll(uid)
	return nil
}

// Watch returns the current snapshot and a live subscription delivering a
// full replacement snapshot after every change.
func (s *Service) Watch(ctx context.Context, uid string) (Snapshot, *Subscription, error) {
	items, err := s.repo.List(ctx, uid)
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("load initial snapshot: %w", err)
	}
	sub := s.feed.Subscribe(ctx, uid)
	return Snapshot{UID: uid, Todos: items}, sub, nil
}

func (s *Service) publish(ctx context.Context, uid string) {
	items, err := s.repo.List(ctx, uid)
	if err != nil {
		s.logger.Error("snapshot reload failed", logger.UserID(uid), logger.Error(err))
		return
	}
	if err := s.feed.Publish(ctx, Snapshot{UID: uid, Todos: items}); err != nil {
		s.logger.Error("snapshot publish failed", logger.UserID(uid), logger.Error(err))
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
