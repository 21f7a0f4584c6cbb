package todo

import (
	"io"
	"sync"
)

// Registry tracks every open realtime listener per user. Sign-out and
// account deletion call CloseAll so no subscription outlives the session
// that opened it.
type Registry struct {
	mu        sync.Mutex
	listeners map[string]map[io.Closer]struct{}
}

func NewRegistry() *Registry {
	return &Registry{listeners: make(map[string]map[io.Closer]struct{})}
}

// Add registers a listener under a user id.
func (r *Registry) Add(uid string, c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.listeners[uid]
	if !ok {
		set = make(map[io.Closer]struct{})
		r.listeners[uid] = set
	}
	set[c] = struct{}{}
}

// Remove drops a listener without closing it. Called by the listener's
// own Close.
func (r *Registry) Remove(uid string, c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.listeners[uid]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.listeners, uid)
	}
}

// CloseAll closes and drops every listener registered for the user.
func (r *Registry) CloseAll(uid string) {
	r.mu.Lock()
	set := r.listeners[uid]
	delete(r.listeners, uid)
	r.mu.Unlock()

	for c := range set {
		_ = c.Close()
	}
}

// Count returns the number of open listeners for a user.
func (r *Registry) Count(uid string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[uid])
}
