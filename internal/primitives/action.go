// Action provides the immutable action primitive dispatched to a store.
//
// Actions are value types. Once created, an Action should not be mutated; the
// Payload map is shared with every reducer, listener and middleware that sees it.
//
// # Plain records
//
// Values crossing the untyped middleware boundary are converted with AsAction.
// Only plain key-value records qualify: an Action, a non-nil *Action, or a map
// with string keys. Anything else (nil, slices, funcs, foreign structs) is
// rejected with ErrInvalidAction.
//
// Example:
//
//	action := NewAction("todos/add", map[string]any{"text": "write docs"})
package primitives

import (
	"fmt"
	"reflect"
)

// TypeKey is the record key holding the action type in map-shaped actions.
const TypeKey = "type"

const payloadKey = "payload"

type Action struct {
	Type    any            `json:"type" yaml:"type"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// NewAction creates and returns a new immutable Action.
func NewAction(actionType any, payload map[string]any) Action {
	return Action{
		Type:    actionType,
		Payload: payload,
	}
}

// Get returns a payload field. The "type" key resolves to the action type.
func (a Action) Get(key string) (any, bool) {
	if key == TypeKey {
		return a.Type, a.Type != nil
	}
	v, ok := a.Payload[key]
	return v, ok
}

// TypeString renders the action type for logs and metric labels.
func (a Action) TypeString() string {
	switch t := a.Type.(type) {
	case nil:
		return "<undefined>"
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// IsPlainObject reports whether v is an eligible action record.
func IsPlainObject(v any) bool {
	switch a := v.(type) {
	case nil:
		return false
	case Action:
		return true
	case *Action:
		return a != nil
	case map[string]any:
		return a != nil
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String && !rv.IsNil()
}

// AsAction converts a plain record into an Action.
// It does not check the type field; see Action.Validate.
func AsAction(v any) (Action, error) {
	if !IsPlainObject(v) {
		return Action{}, fmt.Errorf("%w: got %T", ErrInvalidAction, v)
	}
	switch a := v.(type) {
	case Action:
		return a, nil
	case *Action:
		return *a, nil
	case map[string]any:
		return actionFromMap(a), nil
	}
	rv := reflect.ValueOf(v)
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return actionFromMap(m), nil
}

// actionFromMap keeps the non-type fields as the payload. A record shaped
// like an encoded Action ({"type": ..., "payload": {...}}) uses its payload
// field directly.
func actionFromMap(m map[string]any) Action {
	a := Action{Type: m[TypeKey]}
	if payload, ok := m[payloadKey].(map[string]any); ok && len(m) == 2 && a.Type != nil {
		a.Payload = payload
		return a
	}
	if len(m) > 1 || (len(m) == 1 && a.Type == nil) {
		a.Payload = make(map[string]any, len(m))
		for k, v := range m {
			if k == TypeKey {
				continue
			}
			a.Payload[k] = v
		}
	}
	return a
}

// Validate checks the action carries a defined type.
func (a Action) Validate() error {
	if a.Type == nil {
		return ErrUndefinedType
	}
	return nil
}
