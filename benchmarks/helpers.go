// Package benchmarks provides shared helpers for store benchmarks.
package benchmarks

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/comalice/storex"
)

// counterReducer counts "tick" actions.
func counterReducer(state any, action storex.Action) any {
	if state == nil {
		return 0
	}
	if action.Type == "tick" {
		return state.(int) + 1
	}
	return state
}

// GenReducers creates n counter slices named s0..s(n-1).
func GenReducers(n int) map[string]storex.Reducer {
	if n < 1 {
		n = 1
	}
	reducers := make(map[string]storex.Reducer, n)
	for i := 0; i < n; i++ {
		reducers[fmt.Sprintf("s%d", i)] = counterReducer
	}
	return reducers
}

// GenSelectorChain registers selectors c1..c(depth), each reading the
// previous one, on top of slice s0. It returns the name of the last link.
func GenSelectorChain(store *storex.Store, depth int) string {
	prev := "s0"
	for i := 1; i <= depth; i++ {
		name := fmt.Sprintf("c%d", i)
		store.AddSelector(name, []string{prev}, func(values ...any) any {
			return values[0].(int) + 1
		})
		prev = name
	}
	return prev
}

// NewStore creates a quiet store with history disabled and n slices.
func NewStore(tb testing.TB, slices int, opts ...storex.Option) *storex.Store {
	tb.Helper()
	base := []storex.Option{
		storex.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		storex.WithHistorySize(0),
	}
	store, err := storex.New(append(base, opts...)...)
	if err != nil {
		tb.Fatalf("storex.New: %v", err)
	}
	if slices > 0 {
		if err := store.AddReducers(GenReducers(slices)); err != nil {
			tb.Fatalf("AddReducers: %v", err)
		}
	}
	return store
}
