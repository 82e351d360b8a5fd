package storex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/comalice/storex/internal/core"
	"github.com/comalice/storex/internal/extensibility"
	"github.com/comalice/storex/internal/primitives"
)

type (
	Action       = primitives.Action
	State        = primitives.State
	Reducer      = core.Reducer
	RootReducer  = core.RootReducer
	Selector     = core.Selector
	Combiner     = core.Combiner
	Listener     = core.Listener
	Observer     = core.Observer
	Snapshot     = core.Snapshot
	Persister    = core.Persister
	HistoryEntry = core.HistoryEntry

	DispatchFunc  = extensibility.DispatchFunc
	Middleware    = extensibility.Middleware
	MiddlewareAPI = extensibility.MiddlewareAPI
	Thunk         = extensibility.Thunk
	ActionSource  = extensibility.ActionSource
)

// ActionTypeInit is the reserved action type dispatched on construction and
// after ReplaceReducer.
const ActionTypeInit = core.ActionTypeInit

var (
	ErrInvalidAction       = primitives.ErrInvalidAction
	ErrUndefinedType       = primitives.ErrUndefinedType
	ErrReentrantDispatch   = primitives.ErrReentrantDispatch
	ErrNotCallable         = primitives.ErrNotCallable
	ErrUndefinedSliceState = primitives.ErrUndefinedSliceState
	ErrUnknownSelector     = primitives.ErrUnknownSelector
	ErrSnapshotNotFound    = core.ErrSnapshotNotFound
)

// NewAction builds an action record.
func NewAction(actionType any, payload map[string]any) Action {
	return primitives.NewAction(actionType, payload)
}

// ThunkMiddleware lets Thunk values be dispatched.
func ThunkMiddleware(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
	return extensibility.ThunkMiddleware(api)
}

// LoggingMiddleware logs every dispatch through logger.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return extensibility.LoggingMiddleware(logger)
}

// Option configures a Store.
type Option func(*config)

type config struct {
	engine     []core.Option
	middleware []Middleware
}

// WithMiddleware appends middleware. The first middleware is outermost.
func WithMiddleware(mws ...Middleware) Option {
	return func(c *config) { c.middleware = append(c.middleware, mws...) }
}

// WithID names the store. The ID keys persisted snapshots.
func WithID(id string) Option {
	return func(c *config) { c.engine = append(c.engine, core.WithID(id)) }
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.engine = append(c.engine, core.WithLogger(logger)) }
}

// WithObserver receives dispatch lifecycle notifications.
func WithObserver(o Observer) Option {
	return func(c *config) { c.engine = append(c.engine, core.WithObserver(o)) }
}

// WithHistorySize bounds the applied-action history. Zero disables it.
func WithHistorySize(size int) Option {
	return func(c *config) { c.engine = append(c.engine, core.WithHistorySize(size)) }
}

// WithReducer installs a root reducer at construction.
func WithReducer(r RootReducer) Option {
	return func(c *config) { c.engine = append(c.engine, core.WithReducer(r)) }
}

// WithPreloadedState seeds the state tree.
func WithPreloadedState(state State) Option {
	return func(c *config) { c.engine = append(c.engine, core.WithPreloadedState(state)) }
}

// Store is the public face of a state container.
type Store struct {
	engine   *core.Engine
	dispatch DispatchFunc
}

// New creates a store. Construction dispatches INIT, which is queued until
// the first slice is added unless WithReducer is given.
func New(opts ...Option) (*Store, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	engine, err := core.NewEngine(c.engine...)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	s := &Store{engine: engine}
	s.dispatch = extensibility.Chain(engine.State, s.terminal, c.middleware...)
	return s, nil
}

// terminal returns the applied action, or nil when it was queued.
func (s *Store) terminal(v any) (any, error) {
	action, applied, err := s.engine.DispatchValue(v)
	if err != nil || !applied {
		return nil, err
	}
	return action, nil
}

// ID returns the store identifier.
func (s *Store) ID() string {
	return s.engine.ID()
}

// GetState returns the current state tree. It is replaced, never mutated,
// on change, so callers may compare trees by identity.
func (s *Store) GetState() State {
	return s.engine.State()
}

// Dispatch sends an action through the middleware chain. It returns the
// action and true when it reached the reducers, or a zero Action and false
// when it was queued because no slice exists yet.
func (s *Store) Dispatch(action Action) (Action, bool, error) {
	result, err := s.dispatch(action)
	if err != nil {
		return action, false, err
	}
	applied, ok := result.(Action)
	if !ok {
		return Action{}, false, nil
	}
	return applied, true, nil
}

// DispatchValue sends an untyped value through the middleware chain. Without
// middleware handling it, a value that is not a plain record fails with
// ErrInvalidAction.
func (s *Store) DispatchValue(v any) (any, error) {
	return s.dispatch(v)
}

// Subscribe registers a listener and returns its unsubscribe func.
func (s *Store) Subscribe(listener Listener) (func(), error) {
	return s.engine.Subscribe(listener)
}

// AddReducers registers slices. See core.Engine.AddReducers.
func (s *Store) AddReducers(reducers map[string]Reducer) error {
	return s.engine.AddReducers(reducers)
}

// Slices returns the registered slice names, sorted.
func (s *Store) Slices() []string {
	return s.engine.Slices()
}

// AddSelector registers a memoized selector over the named inputs,
// replacing any selector of the same name. Unknown inputs become base
// selectors projecting the slice of that name. A nil combiner returns a map
// of input name to input value.
func (s *Store) AddSelector(name string, inputs []string, combiner Combiner) Selector {
	return s.engine.Selectors().Register(name, inputs, combiner)
}

// SelectorDef declares one selector for AddSelectors.
type SelectorDef struct {
	Inputs   []string
	Combiner Combiner
}

// AddSelectors registers a batch of selectors. Selectors in the batch are
// registered before the batch members that name them as inputs.
func (s *Store) AddSelectors(defs map[string]SelectorDef) {
	registry := s.engine.Selectors()
	visited := make(map[string]bool, len(defs))
	var register func(name string)
	register = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		decl := defs[name]
		for _, input := range decl.Inputs {
			if _, ok := defs[input]; ok {
				register(input)
			}
		}
		registry.Register(name, decl.Inputs, decl.Combiner)
	}
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		register(name)
	}
}

// GetSelectorByName returns the named selector.
func (s *Store) GetSelectorByName(name string) (Selector, bool) {
	return s.engine.Selectors().Get(name)
}

// Select evaluates the named selector against the current state.
func (s *Store) Select(name string) (any, error) {
	sel, ok := s.engine.Selectors().Get(name)
	if !ok {
		return nil, fmt.Errorf("select %q: %w", name, ErrUnknownSelector)
	}
	return sel(s.engine.State()), nil
}

// SelectorNames returns every registered selector name, sorted.
func (s *Store) SelectorNames() []string {
	return s.engine.Selectors().Names()
}

// SelectorInputs returns the declared inputs of a selector.
func (s *Store) SelectorInputs(name string) ([]string, bool) {
	return s.engine.Selectors().Inputs(name)
}

// ReplaceReducer installs a root reducer and dispatches INIT.
func (s *Store) ReplaceReducer(next RootReducer) error {
	return s.engine.ReplaceReducer(next)
}

// Reset drops slices, selectors and state. Listeners and queued actions stay.
// Intended for tests.
func (s *Store) Reset() {
	s.engine.Reset()
}

// Pending returns the actions queued before the first slice was added.
func (s *Store) Pending() []Action {
	return s.engine.Pending()
}

// History returns the recently applied actions, oldest first.
func (s *Store) History() []HistoryEntry {
	return s.engine.History()
}

// Snapshot captures the current state.
func (s *Store) Snapshot() Snapshot {
	return s.engine.Snapshot()
}

// Restore merges a snapshot over the current state and notifies listeners.
func (s *Store) Restore(snapshot Snapshot) error {
	return s.engine.Restore(snapshot)
}

// Load restores the latest snapshot from p. A missing snapshot is not an
// error.
func (s *Store) Load(ctx context.Context, p Persister) error {
	snapshot, err := p.Load(ctx, s.ID())
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil
		}
		return fmt.Errorf("load snapshot: %w", err)
	}
	return s.Restore(snapshot)
}

// Save persists the current state through p.
func (s *Store) Save(ctx context.Context, p Persister) error {
	if err := p.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Pump dispatches every action from src on the calling goroutine until src
// closes or ctx is done.
func (s *Store) Pump(ctx context.Context, src ActionSource) error {
	return extensibility.Pump(ctx, src, func(action Action) error {
		_, _, err := s.Dispatch(action)
		return err
	})
}
