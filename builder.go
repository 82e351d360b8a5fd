package storex

import (
	"encoding/json"
	"reflect"
)

// Handler computes the next slice value for one action type.
type Handler[T any] func(state T, action Action) T

// SliceBuilder provides a fluent API for slice reducers keyed by action type,
// so callers don't hand-write the nil-state and unknown-action cases.
type SliceBuilder[T any] struct {
	initial  T
	handlers map[any]Handler[T]
}

// NewSlice starts a slice whose initial value is initial.
func NewSlice[T any](initial T) *SliceBuilder[T] {
	return &SliceBuilder[T]{
		initial:  initial,
		handlers: make(map[any]Handler[T]),
	}
}

// On sets the handler for actionType, replacing any earlier one.
// actionType must be comparable.
func (b *SliceBuilder[T]) On(actionType any, h Handler[T]) *SliceBuilder[T] {
	b.handlers[actionType] = h
	return b
}

// Reducer builds the slice reducer. It returns the initial value for a nil
// state and the state unchanged for actions without a handler. State of
// another type, as decoded from a JSON or YAML snapshot, is converted to T
// through JSON before a handler runs.
func (b *SliceBuilder[T]) Reducer() Reducer {
	handlers := make(map[any]Handler[T], len(b.handlers))
	for k, h := range b.handlers {
		handlers[k] = h
	}
	initial := b.initial
	return func(state any, action Action) any {
		if state == nil {
			return initial
		}
		if t := reflect.TypeOf(action.Type); t == nil || !t.Comparable() {
			return state
		}
		h, ok := handlers[action.Type]
		if !ok {
			return state
		}
		current, ok := state.(T)
		if !ok {
			converted, err := convert[T](state)
			if err != nil {
				return state
			}
			current = converted
		}
		return h(current, action)
	}
}

func convert[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}
