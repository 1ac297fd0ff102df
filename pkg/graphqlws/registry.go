package graphqlws

import (
	"context"
	"sync"
)

// Registry tracks the active operations of one connection, keyed by the
// client-supplied operation id. Insert is atomic and removal is idempotent,
// so the natural-completion path and the client-cancellation path can race
// without double-cancelling.
type Registry struct {
	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]context.CancelFunc)}
}

// TryInsert atomically registers an operation id. It returns false without
// modifying the registry if the id is already present.
func (r *Registry) TryInsert(id string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[id]; exists {
		return false
	}
	r.subs[id] = cancel
	return true
}

// Remove removes an operation id and returns its cancel handle. Exactly one
// of two concurrent callers observes ok=true; the other is a no-op.
func (r *Registry) Remove(id string) (context.CancelFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, exists := r.subs[id]
	if exists {
		delete(r.subs, id)
	}
	return cancel, exists
}

// Has reports whether an operation id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.subs[id]
	return exists
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// RemoveAll empties the registry and returns every cancel handle. Used at
// connection close to cancel all outstanding operations.
func (r *Registry) RemoveAll() []context.CancelFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := make([]context.CancelFunc, 0, len(r.subs))
	for _, cancel := range r.subs {
		handles = append(handles, cancel)
	}
	r.subs = make(map[string]context.CancelFunc)
	return handles
}
