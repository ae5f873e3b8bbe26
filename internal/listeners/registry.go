// Package listeners provides a registry of observers that does not keep
// them alive.
//
// Add returns a Subscription that owns the listener. The registry itself
// only holds a weak pointer to the subscription, so an observer that drops
// its Subscription is unregistered by the garbage collector and skipped on
// the next notification. Observers that want deterministic teardown call
// Close.
package listeners

import (
	"sync"
	"weak"

	"github.com/google/uuid"
)

// Subscription keeps a listener registered for as long as it is reachable.
type Subscription[L any] struct {
	id       uuid.UUID
	listener L
	reg      *Registry[L]
}

// ID identifies the subscription in logs.
func (s *Subscription[L]) ID() uuid.UUID { return s.id }

// Close unregisters the listener. It is safe to call more than once.
func (s *Subscription[L]) Close() {
	s.reg.remove(s.id)
}

type entry[L any] struct {
	id  uuid.UUID
	ptr weak.Pointer[Subscription[L]]
}

// Registry is a set of weakly held listeners. The zero value is ready to use.
type Registry[L any] struct {
	mu      sync.Mutex
	entries []entry[L]
}

// Add registers l and returns the subscription that keeps it alive.
func (r *Registry[L]) Add(l L) *Subscription[L] {
	s := &Subscription[L]{id: uuid.New(), listener: l, reg: r}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry[L]{id: s.id, ptr: weak.Make(s)})
	return s
}

func (r *Registry[L]) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// Live returns the listeners that are still reachable, in registration
// order, and drops entries whose subscription has been collected.
func (r *Registry[L]) Live() []L {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]L, 0, len(r.entries))
	kept := r.entries[:0]
	for _, e := range r.entries {
		s := e.ptr.Value()
		if s == nil {
			continue
		}
		kept = append(kept, e)
		out = append(out, s.listener)
	}
	clear(r.entries[len(kept):])
	r.entries = kept
	return out
}

// Each calls fn for every live listener. fn runs without the registry lock
// held, so it may add or close subscriptions.
func (r *Registry[L]) Each(fn func(L)) {
	for _, l := range r.Live() {
		fn(l)
	}
}

// Len reports the number of entries, including ones not yet pruned.
func (r *Registry[L]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
