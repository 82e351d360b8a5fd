package core

import (
	"fmt"
	"sort"

	"github.com/comalice/storex/internal/primitives"
)

// Reducer computes the next value of one slice. A nil state means the slice
// has no value yet and the reducer must return its initial value. Unknown
// actions must return state unchanged.
type Reducer func(state any, action primitives.Action) any

// RootReducer computes the next state tree.
type RootReducer func(state primitives.State, action primitives.Action) (primitives.State, error)

// CombineReducers builds a root reducer delegating each key to its slice
// reducer. When no slice changes identity the input state is returned as is,
// so consumers can detect no-op dispatches with primitives.SameState.
// Keys without a reducer are carried over untouched.
func CombineReducers(reducers map[string]Reducer) RootReducer {
	keys := make([]string, 0, len(reducers))
	own := make(map[string]Reducer, len(reducers))
	for key, r := range reducers {
		keys = append(keys, key)
		own[key] = r
	}
	keys = sortedCopy(keys)

	return func(state primitives.State, action primitives.Action) (primitives.State, error) {
		var next primitives.State
		for _, key := range keys {
			prev, had := state[key]
			updated := own[key](prev, action)
			if updated == nil {
				return state, fmt.Errorf("slice %q given action %s: %w", key, action.TypeString(), primitives.ErrUndefinedSliceState)
			}
			if had && primitives.SameValue(prev, updated) {
				continue
			}
			if next == nil {
				next = state.Clone()
			}
			next[key] = updated
		}
		if next == nil {
			return state, nil
		}
		return next, nil
	}
}

func sortedCopy(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
