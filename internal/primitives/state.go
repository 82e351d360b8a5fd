// Package primitives provides foundational data structures for the store engine.
// All implementations use only the Go standard library for zero external dependencies.
// State is the top-level tree, keyed by slice name. A State handed out by the
// engine is never mutated afterwards; every change produces a new map so
// consumers can detect changes with SameState.
package primitives

import (
	"reflect"
	"sort"
)

// State maps slice names to slice-local values.
type State map[string]any

// Clone returns a shallow copy. Slice values are shared.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the slice names in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SameState reports whether a and b are the same map instance.
func SameState(a, b State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).UnsafePointer() == reflect.ValueOf(b).UnsafePointer()
}

// SameValue compares two values by identity.
// Reference kinds (maps, slices, pointers, funcs, channels) compare by address,
// scalars by ==, and composite values (structs, arrays) by content.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).UnsafePointer() == reflect.ValueOf(b).UnsafePointer()
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Len() == vb.Len() && va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Struct, reflect.Array, reflect.Interface:
		return reflect.DeepEqual(a, b)
	default:
		return a == b
	}
}
