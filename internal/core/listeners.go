package core

import (
	"fmt"

	"github.com/comalice/storex/internal/primitives"
)

// Listener is notified after every applied change.
type Listener func()

type listenerEntry struct {
	id uint64
	fn Listener
}

// ListenerRegistry is an ordered set of listeners. The backing slice is
// copy-on-write: Subscribe and unsubscribe build a new slice, so a snapshot
// taken before a change is never affected by it.
type ListenerRegistry struct {
	entries []listenerEntry
	nextID  uint64
}

// NewListenerRegistry creates an empty registry.
func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{}
}

// Subscribe appends a listener and returns its idempotent unsubscribe func.
// Subscribing the same func twice registers it twice.
func (r *ListenerRegistry) Subscribe(fn Listener) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("subscribe: %w", primitives.ErrNotCallable)
	}
	r.nextID++
	id := r.nextID

	next := make([]listenerEntry, len(r.entries), len(r.entries)+1)
	copy(next, r.entries)
	r.entries = append(next, listenerEntry{id: id, fn: fn})

	subscribed := true
	return func() {
		if !subscribed {
			return
		}
		subscribed = false
		r.remove(id)
	}, nil
}

func (r *ListenerRegistry) remove(id uint64) {
	next := make([]listenerEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.id != id {
			next = append(next, entry)
		}
	}
	r.entries = next
}

// Snapshot returns the listeners in subscription order.
func (r *ListenerRegistry) Snapshot() []Listener {
	current := r.entries
	out := make([]Listener, len(current))
	for i, entry := range current {
		out[i] = entry.fn
	}
	return out
}

// Len returns the number of registered listeners.
func (r *ListenerRegistry) Len() int {
	return len(r.entries)
}
