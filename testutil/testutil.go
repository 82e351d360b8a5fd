// Package testutil holds helpers shared by storex tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/comalice/storex"
)

// CounterReducer starts at 0 and adds one for every action of type "X".
func CounterReducer(state any, action storex.Action) any {
	if state == nil {
		return 0
	}
	if action.Type == "X" {
		return state.(int) + 1
	}
	return state
}

// Constant returns a reducer whose slice always holds v.
func Constant(v any) storex.Reducer {
	return func(state any, _ storex.Action) any {
		if state == nil {
			return v
		}
		return state
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewStore creates a store with a discarding logger and fails the test on
// error.
func NewStore(t testing.TB, opts ...storex.Option) *storex.Store {
	t.Helper()
	store, err := storex.New(append([]storex.Option{storex.WithLogger(DiscardLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("storex.New: %v", err)
	}
	return store
}

// Recorder is a listener that captures the state seen at each notification.
type Recorder struct {
	store  *storex.Store
	States []storex.State
}

// Record subscribes a Recorder to store.
func Record(t testing.TB, store *storex.Store) *Recorder {
	t.Helper()
	r := &Recorder{store: store}
	unsubscribe, err := store.Subscribe(r.listen)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(unsubscribe)
	return r
}

func (r *Recorder) listen() {
	r.States = append(r.States, r.store.GetState())
}

// Calls returns the number of notifications seen.
func (r *Recorder) Calls() int {
	return len(r.States)
}
