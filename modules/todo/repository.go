package todo

import "context"

// Repository persists todos. Every operation is scoped to a single user:
// an id that exists but belongs to someone else behaves exactly like a
// missing one.
type Repository interface {
	Create(ctx context.Context, item *Todo) error
	Get(ctx context.Context, uid, id string) (*Todo, error)
	// List returns the user's todos ordered by CreateAt descending.
	List(ctx context.Context, uid string) ([]Todo, error)
	Update(ctx context.Context, uid, id string, patch Patch) (*Todo, error)
	Delete(ctx context.Context, uid, id string) error
	// DeleteByUser removes every todo the user owns. Used by account
	// deletion.
	DeleteByUser(ctx context.Context, uid string) error
}
