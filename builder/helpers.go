// Package builder offers ready-made slice handlers for storex.NewSlice.
package builder

import (
	"github.com/comalice/storex"
)

// Number is the set of types Add accepts.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Add increments the slice by step.
func Add[T Number](step T) storex.Handler[T] {
	return func(state T, _ storex.Action) T {
		return state + step
	}
}

// AddPayload increments the slice by the payload field key. Missing or
// mistyped fields leave the slice unchanged.
func AddPayload[T Number](key string) storex.Handler[T] {
	return func(state T, action storex.Action) T {
		v, ok := action.Payload[key].(T)
		if !ok {
			return state
		}
		return state + v
	}
}

// Set replaces the slice with the payload field key when it has type T.
func Set[T any](key string) storex.Handler[T] {
	return func(state T, action storex.Action) T {
		if v, ok := action.Payload[key].(T); ok {
			return v
		}
		return state
	}
}

// Reset returns the slice to v.
func Reset[T any](v T) storex.Handler[T] {
	return func(T, storex.Action) T {
		return v
	}
}

// Toggle flips a boolean slice.
func Toggle() storex.Handler[bool] {
	return func(state bool, _ storex.Action) bool {
		return !state
	}
}

// Append adds the payload field key to a list slice. The result is a new
// slice; the previous value is never modified.
func Append[E any](key string) storex.Handler[[]E] {
	return func(state []E, action storex.Action) []E {
		v, ok := action.Payload[key].(E)
		if !ok {
			return state
		}
		next := make([]E, len(state), len(state)+1)
		copy(next, state)
		return append(next, v)
	}
}

// Put stores the payload field value under the payload field key in a map
// slice, copying the map.
func Put[V any](keyField, valueField string) storex.Handler[map[string]V] {
	return func(state map[string]V, action storex.Action) map[string]V {
		k, ok := action.Payload[keyField].(string)
		if !ok {
			return state
		}
		v, ok := action.Payload[valueField].(V)
		if !ok {
			return state
		}
		next := make(map[string]V, len(state)+1)
		for key, value := range state {
			next[key] = value
		}
		next[k] = v
		return next
	}
}
