package todo

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory Repository used in tests and local
// development. Safe for concurrent use.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Todo
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]Todo)}
}

func (r *MemoryRepository) Create(ctx context.Context, item *Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = *item
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, uid, id string) (*Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok || item.UID != uid {
		return nil, ErrTodoNotFound
	}
	out := item
	return &out, nil
}

func (r *MemoryRepository) List(ctx context.Context, uid string) ([]Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Todo, 0)
	for _, item := range r.items {
		if item.UID == uid {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreateAt.After(items[j].CreateAt)
	})
	return items, nil
}

func (r *MemoryRepository) Update(ctx context.Context, uid, id string, patch Patch) (*Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.UID != uid {
		return nil, ErrTodoNotFound
	}
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Completed != nil {
		item.Completed = *patch.Completed
	}
	r.items[id] = item
	out := item
	return &out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, uid, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.UID != uid {
		return ErrTodoNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) DeleteByUser(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range r.items {
		if item.UID == uid {
			delete(r.items, id)
		}
	}
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
