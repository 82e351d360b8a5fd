package builder_test

import (
	"reflect"
	"testing"

	"github.com/comalice/storex"
	"github.com/comalice/storex/builder"
)

func TestTodoSlice(t *testing.T) {
	reducer := storex.NewSlice([]string{}).
		On("todos/add", builder.Append[string]("text")).
		On("todos/clear", builder.Reset([]string{})).
		Reducer()

	state := reducer(nil, storex.NewAction(storex.ActionTypeInit, nil))
	state = reducer(state, storex.NewAction("todos/add", map[string]any{"text": "a"}))
	before := state.([]string)
	state = reducer(state, storex.NewAction("todos/add", map[string]any{"text": "b"}))
	if !reflect.DeepEqual(state, []string{"a", "b"}) {
		t.Errorf("state = %v", state)
	}
	if len(before) != 1 {
		t.Error("Append mutated the previous value")
	}
	state = reducer(state, storex.NewAction("todos/add", map[string]any{"text": 3}))
	if len(state.([]string)) != 2 {
		t.Error("mistyped payload should be ignored")
	}
	state = reducer(state, storex.NewAction("todos/clear", nil))
	if len(state.([]string)) != 0 {
		t.Errorf("state after clear = %v", state)
	}
}

func TestNumericHelpers(t *testing.T) {
	reducer := storex.NewSlice(10).
		On("inc", builder.Add(1)).
		On("add", builder.AddPayload[int]("n")).
		On("set", builder.Set[int]("n")).
		Reducer()

	state := reducer(nil, storex.NewAction("x", nil))
	state = reducer(state, storex.NewAction("inc", nil))
	state = reducer(state, storex.NewAction("add", map[string]any{"n": 5}))
	if state != 16 {
		t.Errorf("state = %v, want 16", state)
	}
	state = reducer(state, storex.NewAction("set", map[string]any{"n": 2}))
	if state != 2 {
		t.Errorf("state = %v, want 2", state)
	}
}

func TestToggleAndPut(t *testing.T) {
	flag := storex.NewSlice(false).On("flip", builder.Toggle()).Reducer()
	if got := flag(false, storex.NewAction("flip", nil)); got != true {
		t.Errorf("toggle = %v", got)
	}

	users := storex.NewSlice(map[string]string{}).On("put", builder.Put[string]("id", "name")).Reducer()
	first := users(nil, storex.NewAction("x", nil))
	second := users(first, storex.NewAction("put", map[string]any{"id": "u1", "name": "Ada"}))
	if len(first.(map[string]string)) != 0 {
		t.Error("Put mutated the previous map")
	}
	if second.(map[string]string)["u1"] != "Ada" {
		t.Errorf("second = %v", second)
	}
}
