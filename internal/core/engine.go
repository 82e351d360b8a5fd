// Package core provides the runtime core tier of the store.
// This includes the dispatch engine, reducer composition, the selector and
// listener registries, and action history.
// Dependencies: internal/primitives
// Stdlib-only implementation.
//
// The engine is single-threaded by contract: it holds no locks, and callers
// running on several goroutines must serialize access themselves.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/comalice/storex/internal/primitives"
)

// ActionTypeInit is the reserved action dispatched on construction and after
// ReplaceReducer so every slice can synchronize its initial value.
// Reducers must return the current state for it; never dispatch it yourself.
const ActionTypeInit = "@@storex/INIT"

// InitAction returns the reserved INIT action.
func InitAction() primitives.Action {
	return primitives.NewAction(ActionTypeInit, nil)
}

// Observer receives engine lifecycle notifications.
// Implementations must not call back into the engine.
type Observer interface {
	ActionQueued(action primitives.Action, pending int)
	ActionApplied(action primitives.Action, elapsed time.Duration)
	DispatchFailed(action primitives.Action, err error)
	SlicesAdded(names []string)
	ListenersNotified(count int)
}

// Option applies configuration to Engine via functional options pattern.
type Option func(*Engine)

// Engine is the central state machine of a store: it owns the current state,
// the composite reducer, the reentrancy guard and the pending-action queue.
type Engine struct {
	id          string
	state       primitives.State
	reducer     RootReducer // nil until a reducer is installed
	reducers    map[string]Reducer
	dispatching bool
	notifying   bool
	pending     []primitives.Action

	listeners *ListenerRegistry
	selectors *SelectorRegistry
	history   *History

	// Pluggable components (nil = disabled)
	observer Observer
	logger   *slog.Logger
}

// NewEngine creates an engine and self-dispatches INIT. With no reducer
// installed the INIT action is queued, not lost.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		id:        "default",
		state:     primitives.State{},
		reducers:  map[string]Reducer{},
		listeners: NewListenerRegistry(),
		selectors: NewSelectorRegistry(),
		history:   NewHistory(defaultHistorySize),
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	if _, _, err := e.Dispatch(InitAction()); err != nil {
		return nil, fmt.Errorf("initial dispatch: %w", err)
	}
	return e, nil
}

// ID returns the store identifier used for snapshots.
func (e *Engine) ID() string {
	return e.id
}

// State returns the current state tree. Callers must treat it as read-only.
func (e *Engine) State() primitives.State {
	return e.state
}

// Selectors returns the engine-owned selector registry.
func (e *Engine) Selectors() *SelectorRegistry {
	return e.selectors
}

// Listeners returns the engine-owned listener registry.
func (e *Engine) Listeners() *ListenerRegistry {
	return e.listeners
}

// History returns the applied actions, oldest first.
func (e *Engine) History() []HistoryEntry {
	return e.history.Entries()
}

// Pending returns a copy of the queued actions.
func (e *Engine) Pending() []primitives.Action {
	return append([]primitives.Action(nil), e.pending...)
}

// Slices returns the names of the registered slice reducers.
func (e *Engine) Slices() []string {
	names := make([]string, 0, len(e.reducers))
	for name := range e.reducers {
		names = append(names, name)
	}
	return sortedCopy(names)
}

// Dispatch applies an action. It returns the action unchanged and whether it
// was applied; false with a nil error means it was queued because no reducer
// is installed yet.
func (e *Engine) Dispatch(action primitives.Action) (primitives.Action, bool, error) {
	if err := action.Validate(); err != nil {
		e.failed(action, err)
		return action, false, err
	}
	if e.busy() {
		e.failed(action, primitives.ErrReentrantDispatch)
		return action, false, fmt.Errorf("dispatch %s: %w", action.TypeString(), primitives.ErrReentrantDispatch)
	}

	if e.reducer == nil {
		e.pending = append(e.pending, action)
		e.logger.Debug("storex: action queued", "store", e.id, "type", action.TypeString(), "pending", len(e.pending))
		if e.observer != nil {
			e.observer.ActionQueued(action, len(e.pending))
		}
		return action, false, nil
	}

	if err := e.apply(action); err != nil {
		return action, false, err
	}
	e.notify()
	return action, true, nil
}

// DispatchValue validates an untyped record and dispatches it.
func (e *Engine) DispatchValue(v any) (primitives.Action, bool, error) {
	action, err := primitives.AsAction(v)
	if err != nil {
		e.failed(action, err)
		return action, false, err
	}
	return e.Dispatch(action)
}

// apply runs the reducer and commits the next state without notifying.
func (e *Engine) apply(action primitives.Action) error {
	start := time.Now()
	next, err := e.reduce(action)
	if err != nil {
		err = fmt.Errorf("dispatch %s: %w", action.TypeString(), err)
		e.failed(action, err)
		return err
	}
	e.state = next
	e.history.Record(action)
	if e.observer != nil {
		e.observer.ActionApplied(action, time.Since(start))
	}
	return nil
}

// reduce holds the reentrancy flag for the reducer call only; the deferred
// release also runs when the reducer panics.
func (e *Engine) reduce(action primitives.Action) (primitives.State, error) {
	e.dispatching = true
	defer func() { e.dispatching = false }()
	return e.reducer(e.state, action)
}

func (e *Engine) failed(action primitives.Action, err error) {
	if e.observer != nil {
		e.observer.DispatchFailed(action, err)
	}
}

// busy reports whether a reducer or listener is currently running.
func (e *Engine) busy() bool {
	return e.dispatching || e.notifying
}

// notify invokes the listeners registered when notification starts.
// Listeners run under the reentrancy guard: they may subscribe and
// unsubscribe, but not dispatch.
func (e *Engine) notify() {
	snapshot := e.listeners.Snapshot()
	e.notifying = true
	defer func() { e.notifying = false }()
	for _, listener := range snapshot {
		listener()
	}
	if e.observer != nil {
		e.observer.ListenersNotified(len(snapshot))
	}
}

// Subscribe registers a listener called after every applied change.
func (e *Engine) Subscribe(listener Listener) (func(), error) {
	return e.listeners.Subscribe(listener)
}

// AddReducers registers slice reducers at runtime. Existing reducers and
// existing slice state win over same-named entries. The pending queue is
// replayed in FIFO order exactly once, then listeners are notified once for
// the whole batch.
func (e *Engine) AddReducers(reducers map[string]Reducer) error {
	if e.busy() {
		return fmt.Errorf("add reducers: %w", primitives.ErrReentrantDispatch)
	}
	names := make([]string, 0, len(reducers))
	for name, r := range reducers {
		if r == nil {
			return fmt.Errorf("add reducers: slice %q: %w", name, primitives.ErrNotCallable)
		}
		names = append(names, name)
	}
	names = sortedCopy(names)

	initial := make(primitives.State, len(names)+len(e.state))
	for _, name := range names {
		value, err := e.initialSliceState(name, reducers[name])
		if err != nil {
			return fmt.Errorf("add reducers: %w", err)
		}
		initial[name] = value
	}
	for _, name := range names {
		e.selectors.EnsureBase(name)
	}

	for _, name := range names {
		if _, exists := e.reducers[name]; !exists {
			e.reducers[name] = reducers[name]
		}
	}
	e.reducer = CombineReducers(e.reducers)

	for name, value := range e.state {
		initial[name] = value
	}
	e.state = initial
	e.logger.Debug("storex: slices added", "store", e.id, "slices", names)
	if e.observer != nil {
		e.observer.SlicesAdded(names)
	}

	err := e.flush()
	e.notify()
	return err
}

// initialSliceState asks a reducer for its initial value under the
// reentrancy guard.
func (e *Engine) initialSliceState(name string, r Reducer) (any, error) {
	e.dispatching = true
	defer func() { e.dispatching = false }()
	value := r(nil, InitAction())
	if value == nil {
		return nil, fmt.Errorf("slice %q given action %s: %w", name, ActionTypeInit, primitives.ErrUndefinedSliceState)
	}
	return value, nil
}

// flush drains the pending queue. Every queued action is attempted once even
// if an earlier one fails.
func (e *Engine) flush() error {
	if len(e.pending) == 0 {
		return nil
	}
	queued := e.pending
	e.pending = nil
	e.logger.Debug("storex: replaying pending actions", "store", e.id, "count", len(queued))

	var errs []error
	for _, action := range queued {
		if err := e.apply(action); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("replay pending actions: %w", errors.Join(errs...))
	}
	return nil
}

// ReplaceReducer installs a root reducer and dispatches INIT.
func (e *Engine) ReplaceReducer(next RootReducer) error {
	if next == nil {
		return fmt.Errorf("replace reducer: %w", primitives.ErrNotCallable)
	}
	if e.busy() {
		return fmt.Errorf("replace reducer: %w", primitives.ErrReentrantDispatch)
	}
	e.reducer = next
	e.logger.Debug("storex: reducer replaced", "store", e.id)
	_, _, err := e.Dispatch(InitAction())
	return err
}

// Reset drops reducers, selectors, history and state. Listeners and pending
// actions are kept; the queue replays on the next AddReducers. Intended for
// test isolation only.
func (e *Engine) Reset() {
	e.reducers = map[string]Reducer{}
	e.selectors.Reset()
	e.reducer = nil
	e.state = primitives.State{}
	e.history.Clear()
	e.logger.Debug("storex: reset", "store", e.id)
}

// Snapshot captures the current state for persistence.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		StoreID:   e.id,
		Version:   primitives.ComputeVersion(e.state),
		State:     e.state,
		Timestamp: time.Now().UTC(),
	}
}

// Restore merges a snapshot over the current state (snapshot wins) and
// notifies listeners. Restoring before AddReducers hydrates slices, since
// existing state wins over reducer initial values.
func (e *Engine) Restore(snapshot Snapshot) error {
	if snapshot.StoreID != "" && snapshot.StoreID != e.id {
		return fmt.Errorf("store ID mismatch: have %q, snapshot %q", e.id, snapshot.StoreID)
	}
	if e.busy() {
		return fmt.Errorf("restore: %w", primitives.ErrReentrantDispatch)
	}
	next := e.state.Clone()
	for name, value := range snapshot.State {
		next[name] = value
	}
	e.state = next
	e.notify()
	return nil
}
