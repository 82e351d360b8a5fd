package core

import (
	"github.com/comalice/storex/internal/primitives"
)

// Selector derives a value from the state tree.
type Selector func(state primitives.State) any

// Combiner computes a derived value from the input selector values, in the
// order the inputs were declared.
type Combiner func(values ...any) any

// SelectorRegistry holds named, memoized selectors. Base selectors project a
// single slice and are synthesized on demand.
type SelectorRegistry struct {
	selectors map[string]Selector
	inputs    map[string][]string
}

// NewSelectorRegistry creates an empty registry.
func NewSelectorRegistry() *SelectorRegistry {
	return &SelectorRegistry{
		selectors: make(map[string]Selector),
		inputs:    make(map[string][]string),
	}
}

// EnsureBase registers the identity projection of slice name unless a
// selector of that name already exists.
func (r *SelectorRegistry) EnsureBase(name string) {
	if _, ok := r.selectors[name]; ok {
		return
	}
	r.selectors[name] = func(state primitives.State) any {
		return state[name]
	}
}

// Register builds a memoized selector over the named inputs and stores it
// under name, replacing any previous entry. Inputs are resolved now, so
// later overwrites of an input name do not affect this selector. A nil
// combiner picks the input values into a map keyed by input name.
func (r *SelectorRegistry) Register(name string, inputs []string, combiner Combiner) Selector {
	declared := append([]string(nil), inputs...)
	deps := make([]Selector, len(declared))
	for i, input := range declared {
		r.EnsureBase(input)
		deps[i] = r.selectors[input]
	}
	if combiner == nil {
		combiner = pickCombiner(declared)
	}

	sel := memoize(deps, combiner)
	r.selectors[name] = sel
	r.inputs[name] = declared
	return sel
}

// Get returns the selector registered under name.
func (r *SelectorRegistry) Get(name string) (Selector, bool) {
	sel, ok := r.selectors[name]
	return sel, ok
}

// Inputs returns the declared inputs of a registered selector. Base
// selectors report no inputs.
func (r *SelectorRegistry) Inputs(name string) ([]string, bool) {
	if _, ok := r.selectors[name]; !ok {
		return nil, false
	}
	return append([]string(nil), r.inputs[name]...), true
}

// Names returns all registered selector names, sorted.
func (r *SelectorRegistry) Names() []string {
	names := make([]string, 0, len(r.selectors))
	for name := range r.selectors {
		names = append(names, name)
	}
	return sortedCopy(names)
}

// Reset removes every selector.
func (r *SelectorRegistry) Reset() {
	r.selectors = make(map[string]Selector)
	r.inputs = make(map[string][]string)
}

func pickCombiner(names []string) Combiner {
	return func(values ...any) any {
		picked := make(map[string]any, len(names))
		for i, name := range names {
			picked[name] = values[i]
		}
		return picked
	}
}

// memoize caches the last result. It recomputes only when the state tree or
// at least one direct input value differs by identity from the last call.
func memoize(deps []Selector, combine Combiner) Selector {
	var (
		computed  bool
		lastState primitives.State
		lastArgs  []any
		result    any
	)
	return func(state primitives.State) any {
		if computed && primitives.SameState(state, lastState) {
			return result
		}
		args := make([]any, len(deps))
		for i, dep := range deps {
			args[i] = dep(state)
		}
		lastState = state
		if computed && sameArgs(args, lastArgs) {
			return result
		}
		result = combine(args...)
		lastArgs = args
		computed = true
		return result
	}
}

func sameArgs(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !primitives.SameValue(a[i], b[i]) {
			return false
		}
	}
	return true
}
