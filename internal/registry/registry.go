// Package registry provides the per-type entity tables that stand in for
// weak references.
//
// A registry owns entity lifetime: an entity is alive exactly while it is
// present in its table. Long-lived handles are plain keys, and every
// dereference is a lookup that can fail.
package registry

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps stable keys to live values.
//
// Thread-safety: all methods are safe for concurrent use. The internal lock
// is never held while calling out, so callers may hold their own locks
// around registry calls.
type Registry[K comparable, V any] struct {
	name string
	mu   sync.RWMutex
	live map[K]V
}

// New creates an empty registry. The name appears in error messages.
func New[K comparable, V any](name string) *Registry[K, V] {
	return &Registry[K, V]{
		name: name,
		live: make(map[K]V),
	}
}

// Name returns the registry's name.
func (r *Registry[K, V]) Name() string {
	return r.name
}

// Register inserts v under key. Registering a key twice is a programming
// error and is reported rather than silently overwriting the live entry.
func (r *Registry[K, V]) Register(key K, v V) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.live[key]; exists {
		return fmt.Errorf("%s registry: key %v already registered", r.name, key)
	}
	r.live[key] = v
	return nil
}

// Unregister removes key and reports whether it was present.
func (r *Registry[K, V]) Unregister(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.live[key]; !exists {
		return false
	}
	delete(r.live, key)
	return true
}

// Resolve returns the live value for key.
func (r *Registry[K, V]) Resolve(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.live[key]
	return v, ok
}

// Exists reports whether key is live without handing out the value.
func (r *Registry[K, V]) Exists(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.live[key]
	return ok
}

// Len returns the number of live entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Keys returns a snapshot of the live keys. Order is unspecified unless
// less is non-nil.
func (r *Registry[K, V]) Keys(less func(a, b K) int) []K {
	r.mu.RLock()
	keys := make([]K, 0, len(r.live))
	for k := range r.live {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	if less != nil {
		slices.SortFunc(keys, less)
	}
	return keys
}
