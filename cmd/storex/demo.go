package main

import (
	"encoding/json"

	"github.com/comalice/storex"
	"github.com/comalice/storex/builder"
)

// Todo is one item of the demo todos slice.
type Todo struct {
	Text string `json:"text" yaml:"text"`
	Done bool   `json:"done" yaml:"done"`
}

// Demo action types.
const (
	ActionAddTodo    = "todos/add"
	ActionToggleTodo = "todos/toggle"
	ActionClearDone  = "todos/clearDone"
	ActionSetFilter  = "filter/set"
	ActionIncrement  = "counter/inc"
)

func demoReducers() map[string]storex.Reducer {
	return map[string]storex.Reducer{
		"todos": storex.NewSlice([]Todo{}).
			On(ActionAddTodo, addTodo).
			On(ActionToggleTodo, toggleTodo).
			On(ActionClearDone, clearDone).
			Reducer(),
		"filter": storex.NewSlice("all").
			On(ActionSetFilter, builder.Set[string]("filter")).
			Reducer(),
		"counter": storex.NewSlice(0).
			On(ActionIncrement, builder.Add(1)).
			Reducer(),
	}
}

func addTodo(todos []Todo, action storex.Action) []Todo {
	text, ok := action.Payload["text"].(string)
	if !ok || text == "" {
		return todos
	}
	next := make([]Todo, len(todos), len(todos)+1)
	copy(next, todos)
	return append(next, Todo{Text: text})
}

func toggleTodo(todos []Todo, action storex.Action) []Todo {
	i, ok := intField(action.Payload["index"])
	if !ok || i < 0 || i >= len(todos) {
		return todos
	}
	next := make([]Todo, len(todos))
	copy(next, todos)
	next[i].Done = !next[i].Done
	return next
}

func clearDone(todos []Todo, _ storex.Action) []Todo {
	next := make([]Todo, 0, len(todos))
	for _, td := range todos {
		if !td.Done {
			next = append(next, td)
		}
	}
	if len(next) == len(todos) {
		return todos
	}
	return next
}

// intField accepts YAML ints and JSON numbers.
func intField(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	}
	return 0, false
}

// TodoStats is the value of the "stats" selector.
type TodoStats struct {
	Total int `json:"total"`
	Done  int `json:"done"`
}

func demoSelectors() map[string]storex.SelectorDef {
	return map[string]storex.SelectorDef{
		"visibleTodos": {
			Inputs: []string{"todos", "filter"},
			Combiner: func(values ...any) any {
				todos := asTodos(values[0])
				filter, _ := values[1].(string)
				visible := make([]Todo, 0, len(todos))
				for _, td := range todos {
					switch {
					case filter == "done" && !td.Done, filter == "active" && td.Done:
						continue
					}
					visible = append(visible, td)
				}
				return visible
			},
		},
		"stats": {
			Inputs: []string{"todos"},
			Combiner: func(values ...any) any {
				todos := asTodos(values[0])
				stats := TodoStats{Total: len(todos)}
				for _, td := range todos {
					if td.Done {
						stats.Done++
					}
				}
				return stats
			},
		},
	}
}

// asTodos also accepts restored snapshot values decoded as generic JSON.
func asTodos(v any) []Todo {
	if todos, ok := v.([]Todo); ok {
		return todos
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var todos []Todo
	if err := json.Unmarshal(data, &todos); err != nil {
		return nil
	}
	return todos
}

// setupDemo registers the demo slices and selectors on store.
func setupDemo(store *storex.Store) error {
	store.AddSelectors(demoSelectors())
	return store.AddReducers(demoReducers())
}
