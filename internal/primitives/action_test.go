package primitives

import (
	"errors"
	"testing"
)

type foreignRecord struct {
	Type string
}

func TestNewAction(t *testing.T) {
	a := NewAction("test", map[string]any{"n": 42})
	if a.Type != "test" {
		t.Errorf("got Type=%v want test", a.Type)
	}
	if v, ok := a.Get("n"); !ok || v != 42 {
		t.Errorf("got n=%v (%v) want 42", v, ok)
	}
	if v, ok := a.Get(TypeKey); !ok || v != "test" {
		t.Errorf("type key lookup: got %v", v)
	}
}

func TestActionImmutability(t *testing.T) {
	a := NewAction("test", nil)
	aCopy := a
	aCopy.Type = "modified"
	if a.Type != "test" {
		t.Error("original Type was mutated")
	}
}

func TestIsPlainObject(t *testing.T) {
	var nilAction *Action
	var nilMap map[string]any
	cases := []struct {
		name string
		v    any
		want bool
	}{
		{"action", NewAction("x", nil), true},
		{"action pointer", &Action{Type: "x"}, true},
		{"map", map[string]any{"type": "x"}, true},
		{"typed map", map[string]string{"type": "x"}, true},
		{"nil", nil, false},
		{"nil action pointer", nilAction, false},
		{"nil map", nilMap, false},
		{"slice", []any{"x"}, false},
		{"array", [1]string{"x"}, false},
		{"func", func() {}, false},
		{"string", "x", false},
		{"foreign struct", foreignRecord{Type: "x"}, false},
		{"foreign pointer", &foreignRecord{Type: "x"}, false},
		{"int keyed map", map[int]any{1: "x"}, false},
	}
	for _, tc := range cases {
		if got := IsPlainObject(tc.v); got != tc.want {
			t.Errorf("%s: IsPlainObject=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestAsAction_Map(t *testing.T) {
	a, err := AsAction(map[string]any{"type": "todos/add", "text": "docs"})
	if err != nil {
		t.Fatalf("AsAction: %v", err)
	}
	if a.Type != "todos/add" {
		t.Errorf("type: got %v", a.Type)
	}
	if a.Payload["text"] != "docs" {
		t.Errorf("payload: got %v", a.Payload)
	}
	if _, ok := a.Payload[TypeKey]; ok {
		t.Error("type key leaked into payload")
	}
}

func TestAsAction_EncodedAction(t *testing.T) {
	a, err := AsAction(map[string]any{"type": "todos/add", "payload": map[string]any{"text": "docs"}})
	if err != nil {
		t.Fatalf("AsAction: %v", err)
	}
	if a.Payload["text"] != "docs" {
		t.Errorf("payload: got %v", a.Payload)
	}
	if _, ok := a.Payload["payload"]; ok {
		t.Error("payload field was not unwrapped")
	}
}

func TestAsAction_TypedMap(t *testing.T) {
	a, err := AsAction(map[string]int{"type": 7, "n": 1})
	if err != nil {
		t.Fatalf("AsAction: %v", err)
	}
	if a.Type != 7 || a.Payload["n"] != 1 {
		t.Errorf("got %+v", a)
	}
}

func TestAsAction_Rejects(t *testing.T) {
	for _, v := range []any{nil, []int{1}, foreignRecord{}, func() {}} {
		if _, err := AsAction(v); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("AsAction(%T): expected ErrInvalidAction, got %v", v, err)
		}
	}
}

func TestAction_Validate(t *testing.T) {
	if err := (Action{}).Validate(); !errors.Is(err, ErrUndefinedType) {
		t.Errorf("expected ErrUndefinedType, got %v", err)
	}
	if err := NewAction(0, nil).Validate(); err != nil {
		t.Errorf("zero-valued type is defined: %v", err)
	}
	a, _ := AsAction(map[string]any{"text": "no type"})
	if err := a.Validate(); !errors.Is(err, ErrUndefinedType) {
		t.Errorf("map without type: expected ErrUndefinedType, got %v", err)
	}
}

func TestAction_TypeString(t *testing.T) {
	if got := NewAction("x", nil).TypeString(); got != "x" {
		t.Errorf("got %q", got)
	}
	if got := NewAction(3, nil).TypeString(); got != "3" {
		t.Errorf("got %q", got)
	}
	if got := (Action{}).TypeString(); got != "<undefined>" {
		t.Errorf("got %q", got)
	}
}
