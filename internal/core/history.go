// Package core provides the runtime core tier of the store.
// History keeps a bounded record of applied actions for inspection tools.
// Stdlib-only implementation.
package core

import (
	"time"

	"github.com/comalice/storex/internal/primitives"
)

// HistoryEntry is one applied action.
type HistoryEntry struct {
	Action    primitives.Action `json:"action" yaml:"action"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
}

// History is a ring buffer of the most recent applied actions.
// Queued actions are recorded when they are replayed, not when queued.
type History struct {
	entries []HistoryEntry
	next    int
	full    bool
}

// NewHistory creates a History holding at most size entries.
// A size of zero or less disables recording.
func NewHistory(size int) *History {
	if size < 0 {
		size = 0
	}
	return &History{entries: make([]HistoryEntry, size)}
}

// Record appends an action, evicting the oldest when full.
func (h *History) Record(action primitives.Action) {
	if len(h.entries) == 0 {
		return
	}
	h.entries[h.next] = HistoryEntry{Action: action, Timestamp: time.Now().UTC()}
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Entries returns the recorded actions, oldest first.
func (h *History) Entries() []HistoryEntry {
	if !h.full {
		return append([]HistoryEntry(nil), h.entries[:h.next]...)
	}
	out := make([]HistoryEntry, 0, len(h.entries))
	out = append(out, h.entries[h.next:]...)
	return append(out, h.entries[:h.next]...)
}

// Clear drops all recorded entries.
func (h *History) Clear() {
	for i := range h.entries {
		h.entries[i] = HistoryEntry{}
	}
	h.next = 0
	h.full = false
}
