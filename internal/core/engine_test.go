package core

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/comalice/storex/internal/primitives"
)

// counter returns 0 initially and increments on "X".
func counter(state any, action primitives.Action) any {
	if state == nil {
		return 0
	}
	if action.Type == "X" {
		return state.(int) + 1
	}
	return state
}

func constant(v any) Reducer {
	return func(state any, action primitives.Action) any {
		if state == nil {
			return v
		}
		return state
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngine_InitIsQueued(t *testing.T) {
	e := newTestEngine(t)
	pending := e.Pending()
	if len(pending) != 1 || pending[0].Type != ActionTypeInit {
		t.Fatalf("expected queued INIT, got %v", pending)
	}
	if len(e.State()) != 0 {
		t.Errorf("expected empty state, got %v", e.State())
	}
}

func TestEngine_DispatchBeforeSliceQueuesWithoutNotify(t *testing.T) {
	e := newTestEngine(t)
	calls := 0
	if _, err := e.Subscribe(func() { calls++ }); err != nil {
		t.Fatal(err)
	}

	action := primitives.NewAction("X", nil)
	got, applied, err := e.Dispatch(action)
	if err != nil {
		t.Fatalf("queued dispatch must not fail: %v", err)
	}
	if applied {
		t.Error("expected action to be queued, not applied")
	}
	if got.Type != "X" {
		t.Errorf("unexpected returned action %v", got)
	}
	if calls != 0 {
		t.Errorf("listeners called %d times before any slice", calls)
	}
	if len(e.State()) != 0 {
		t.Errorf("state changed before any slice: %v", e.State())
	}
}

func TestEngine_AddReducersReplaysQueueAndNotifiesOnce(t *testing.T) {
	e := newTestEngine(t)
	calls := 0
	if _, err := e.Subscribe(func() { calls++ }); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}

	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatalf("AddReducers: %v", err)
	}

	if got := e.State()["counter"]; got != 1 {
		t.Errorf("counter = %v, want 1 (queued X replayed)", got)
	}
	if calls != 1 {
		t.Errorf("listeners called %d times, want exactly 1", calls)
	}
	if len(e.Pending()) != 0 {
		t.Errorf("pending queue not drained: %v", e.Pending())
	}

	// Queue is never replayed again.
	if err := e.AddReducers(map[string]Reducer{"other": constant("o")}); err != nil {
		t.Fatal(err)
	}
	if got := e.State()["counter"]; got != 1 {
		t.Errorf("counter = %v after second AddReducers, want 1", got)
	}
}

func TestEngine_ReplayPreservesOrder(t *testing.T) {
	e := newTestEngine(t)
	for _, typ := range []string{"a", "b", "c"} {
		if _, _, err := e.Dispatch(primitives.NewAction(typ, nil)); err != nil {
			t.Fatal(err)
		}
	}
	var seen []string
	log := func(state any, action primitives.Action) any {
		if state == nil {
			return []string{}
		}
		if s, ok := action.Type.(string); ok && len(s) == 1 {
			seen = append(seen, s)
			return append(append([]string(nil), state.([]string)...), s)
		}
		return state
	}
	if err := e.AddReducers(map[string]Reducer{"log": log}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seen, []string{"a", "b", "c"}) {
		t.Errorf("replay order = %v", seen)
	}
}

func TestEngine_DispatchReturnsActionUnchanged(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	action := primitives.NewAction("X", map[string]any{"k": "v"})
	got, applied, err := e.Dispatch(action)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Error("expected applied")
	}
	if !reflect.DeepEqual(got, action) {
		t.Errorf("dispatch returned %v, want %v", got, action)
	}
	if e.State()["counter"] != 1 {
		t.Errorf("counter = %v", e.State()["counter"])
	}
}

func TestEngine_DispatchValidation(t *testing.T) {
	e := newTestEngine(t)
	if _, _, err := e.Dispatch(primitives.Action{}); !errors.Is(err, primitives.ErrUndefinedType) {
		t.Errorf("expected ErrUndefinedType, got %v", err)
	}
	if _, _, err := e.DispatchValue([]string{"X"}); !errors.Is(err, primitives.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
	if _, _, err := e.DispatchValue(map[string]any{"payload": 1}); !errors.Is(err, primitives.ErrUndefinedType) {
		t.Errorf("expected ErrUndefinedType for map without type, got %v", err)
	}
	if len(e.Pending()) != 1 {
		t.Errorf("invalid actions must not be queued: %v", e.Pending())
	}
}

func TestEngine_UnchangedDispatchKeepsStateIdentity(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddReducers(map[string]Reducer{"a": counter, "b": constant("b")}); err != nil {
		t.Fatal(err)
	}
	before := e.State()
	if _, _, err := e.Dispatch(primitives.NewAction("UNKNOWN", nil)); err != nil {
		t.Fatal(err)
	}
	if !primitives.SameState(before, e.State()) {
		t.Error("no-op dispatch replaced the state tree")
	}
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	if primitives.SameState(before, e.State()) {
		t.Error("changing dispatch kept the old state tree")
	}
	if before["a"] != 0 {
		t.Error("previous state tree was mutated")
	}
}

func TestEngine_ReentrantDispatchFromReducer(t *testing.T) {
	e := newTestEngine(t)
	var inner error
	reentrant := func(state any, action primitives.Action) any {
		if state == nil {
			return 0
		}
		if action.Type == "X" {
			_, _, inner = e.Dispatch(primitives.NewAction("Y", nil))
		}
		return state
	}
	if err := e.AddReducers(map[string]Reducer{"r": reentrant}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, primitives.ErrReentrantDispatch) {
		t.Errorf("expected ErrReentrantDispatch from reducer, got %v", inner)
	}
	// The guard is released afterwards.
	if _, _, err := e.Dispatch(primitives.NewAction("Z", nil)); err != nil {
		t.Errorf("engine wedged after reentrant attempt: %v", err)
	}
}

func TestEngine_ReentrantDispatchFromListener(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	var inner error
	calls := 0
	if _, err := e.Subscribe(func() {
		calls++
		if calls == 1 {
			_, _, inner = e.Dispatch(primitives.NewAction("X", nil))
		}
	}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, primitives.ErrReentrantDispatch) {
		t.Errorf("expected ErrReentrantDispatch from listener, got %v", inner)
	}
}

func TestEngine_PanickingReducerReleasesGuard(t *testing.T) {
	e := newTestEngine(t)
	boom := func(state any, action primitives.Action) any {
		if state == nil {
			return 0
		}
		if action.Type == "BOOM" {
			panic("reducer failure")
		}
		return counter(state, action)
	}
	if err := e.AddReducers(map[string]Reducer{"c": boom}); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected reducer panic to propagate")
			}
		}()
		_, _, _ = e.Dispatch(primitives.NewAction("BOOM", nil))
	}()

	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatalf("dispatch after panic: %v", err)
	}
	if e.State()["c"] != 1 {
		t.Errorf("c = %v, want 1", e.State()["c"])
	}
}

func TestEngine_AddReducersFirstRegistrationWins(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}

	replacement := func(state any, action primitives.Action) any {
		if state == nil {
			return 100
		}
		return state.(int) + 10
	}
	if err := e.AddReducers(map[string]Reducer{"counter": replacement}); err != nil {
		t.Fatal(err)
	}
	if got := e.State()["counter"]; got != 1 {
		t.Errorf("existing slice state clobbered: got %v, want 1", got)
	}
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	if got := e.State()["counter"]; got != 2 {
		t.Errorf("first reducer should still run: got %v, want 2", got)
	}
}

func TestEngine_AddReducersRejectsNil(t *testing.T) {
	e := newTestEngine(t)
	err := e.AddReducers(map[string]Reducer{"ok": counter, "bad": nil})
	if !errors.Is(err, primitives.ErrNotCallable) {
		t.Fatalf("expected ErrNotCallable, got %v", err)
	}
	if len(e.Slices()) != 0 {
		t.Errorf("nothing should be registered, got %v", e.Slices())
	}
}

func TestEngine_AddReducersUndefinedInitialState(t *testing.T) {
	e := newTestEngine(t)
	undefined := func(state any, action primitives.Action) any { return nil }
	err := e.AddReducers(map[string]Reducer{"u": undefined})
	if !errors.Is(err, primitives.ErrUndefinedSliceState) {
		t.Fatalf("expected ErrUndefinedSliceState, got %v", err)
	}
}

func TestEngine_ReplayErrorsAreJoined(t *testing.T) {
	e := newTestEngine(t)
	for _, typ := range []string{"FAIL", "X"} {
		if _, _, err := e.Dispatch(primitives.NewAction(typ, nil)); err != nil {
			t.Fatal(err)
		}
	}
	flaky := func(state any, action primitives.Action) any {
		if state == nil {
			return 0
		}
		if action.Type == "FAIL" {
			return nil
		}
		return counter(state, action)
	}
	err := e.AddReducers(map[string]Reducer{"f": flaky})
	if !errors.Is(err, primitives.ErrUndefinedSliceState) {
		t.Fatalf("expected replay error, got %v", err)
	}
	if e.State()["f"] != 1 {
		t.Errorf("later actions must still replay: f = %v", e.State()["f"])
	}
	if len(e.Pending()) != 0 {
		t.Error("queue must be cleared even after failures")
	}
}

func TestEngine_AddReducersRegistersBaseSelectors(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	sel, ok := e.Selectors().Get("counter")
	if !ok {
		t.Fatal("base selector not registered")
	}
	if got := sel(e.State()); got != 0 {
		t.Errorf("base selector = %v", got)
	}
}

func TestEngine_ReplaceReducer(t *testing.T) {
	e := newTestEngine(t)
	if err := e.ReplaceReducer(nil); !errors.Is(err, primitives.ErrNotCallable) {
		t.Errorf("expected ErrNotCallable, got %v", err)
	}

	var seen []any
	root := func(state primitives.State, action primitives.Action) (primitives.State, error) {
		seen = append(seen, action.Type)
		next := state.Clone()
		next["root"] = "ready"
		return next, nil
	}
	if err := e.ReplaceReducer(root); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != ActionTypeInit {
		t.Errorf("expected INIT dispatch after replace, got %v", seen)
	}
	if e.State()["root"] != "ready" {
		t.Errorf("state = %v", e.State())
	}
}

func TestEngine_Reset(t *testing.T) {
	e := newTestEngine(t)
	calls := 0
	if _, err := e.Subscribe(func() { calls++ }); err != nil {
		t.Fatal(err)
	}
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	e.Selectors().Register("derived", []string{"counter"}, nil)
	e.Reset()
	queuedBefore := len(e.Pending())

	if len(e.State()) != 0 {
		t.Errorf("state not cleared: %v", e.State())
	}
	if len(e.Slices()) != 0 {
		t.Errorf("reducers not cleared: %v", e.Slices())
	}
	if _, ok := e.Selectors().Get("derived"); ok {
		t.Error("selectors not cleared")
	}
	if e.Listeners().Len() != 1 {
		t.Error("listeners must survive reset")
	}
	// Back to queueing.
	_, applied, err := e.Dispatch(primitives.NewAction("X", nil))
	if err != nil || applied {
		t.Errorf("after reset dispatch should queue: applied=%v err=%v", applied, err)
	}
	if len(e.Pending()) != queuedBefore+1 {
		t.Errorf("pending = %d, want %d", len(e.Pending()), queuedBefore+1)
	}
}

func TestEngine_ResetKeepsPendingActions(t *testing.T) {
	e := newTestEngine(t)
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	before := len(e.Pending())

	e.Reset()

	if len(e.Pending()) != before {
		t.Fatalf("pending after reset = %d, want %d", len(e.Pending()), before)
	}
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	if got := e.State()["counter"]; got != 1 {
		t.Errorf("counter = %v, want 1", got)
	}
	if len(e.Pending()) != 0 {
		t.Errorf("queue not drained: %v", e.Pending())
	}
}

func TestEngine_AddReducersFailureLeavesSelectorsUntouched(t *testing.T) {
	e := newTestEngine(t)
	nilInit := func(state any, _ primitives.Action) any { return state }
	err := e.AddReducers(map[string]Reducer{"a": counter, "b": nilInit})
	if !errors.Is(err, primitives.ErrUndefinedSliceState) {
		t.Fatalf("expected ErrUndefinedSliceState, got %v", err)
	}
	if _, ok := e.Selectors().Get("a"); ok {
		t.Error("base selector registered by failed AddReducers")
	}
	if len(e.Slices()) != 0 {
		t.Errorf("slices = %v", e.Slices())
	}
}

func TestEngine_WithReducerAppliesInit(t *testing.T) {
	root := CombineReducers(map[string]Reducer{"counter": counter})
	e := newTestEngine(t, WithReducer(root))
	if len(e.Pending()) != 0 {
		t.Errorf("INIT should be applied with a reducer installed: %v", e.Pending())
	}
	if e.State()["counter"] != 0 {
		t.Errorf("counter = %v", e.State()["counter"])
	}
}

func TestEngine_PreloadedStateWins(t *testing.T) {
	e := newTestEngine(t, WithPreloadedState(primitives.State{"counter": 41}))
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	if e.State()["counter"] != 41 {
		t.Errorf("preloaded value lost: %v", e.State()["counter"])
	}
}

func TestEngine_SnapshotRestore(t *testing.T) {
	e := newTestEngine(t, WithID("app"))
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	snap := e.Snapshot()
	if snap.StoreID != "app" || snap.Version == "" {
		t.Errorf("snapshot metadata: %+v", snap)
	}

	fresh := newTestEngine(t, WithID("app"))
	calls := 0
	if _, err := fresh.Subscribe(func() { calls++ }); err != nil {
		t.Fatal(err)
	}
	if err := fresh.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("restore notified %d times", calls)
	}
	if err := fresh.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	if fresh.State()["counter"] != 1 {
		t.Errorf("hydrated counter = %v, want 1", fresh.State()["counter"])
	}

	other := newTestEngine(t, WithID("other"))
	if err := other.Restore(snap); err == nil {
		t.Error("expected store ID mismatch error")
	}
}

func TestEngine_History(t *testing.T) {
	e := newTestEngine(t, WithHistorySize(2))
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	if err := e.AddReducers(map[string]Reducer{"counter": counter}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Dispatch(primitives.NewAction("Y", nil)); err != nil {
		t.Fatal(err)
	}
	entries := e.History()
	if len(entries) != 2 {
		t.Fatalf("history len = %d", len(entries))
	}
	// INIT evicted; replayed X then Y remain.
	if entries[0].Action.Type != "X" || entries[1].Action.Type != "Y" {
		t.Errorf("history = %v", entries)
	}
}

type recordingObserver struct {
	queued   []int
	applied  []string
	failed   []error
	added    [][]string
	notified []int
}

func (o *recordingObserver) ActionQueued(a primitives.Action, pending int) {
	o.queued = append(o.queued, pending)
}
func (o *recordingObserver) ActionApplied(a primitives.Action, _ time.Duration) {
	o.applied = append(o.applied, a.TypeString())
}
func (o *recordingObserver) DispatchFailed(_ primitives.Action, err error) {
	o.failed = append(o.failed, err)
}
func (o *recordingObserver) SlicesAdded(names []string) { o.added = append(o.added, names) }
func (o *recordingObserver) ListenersNotified(n int)    { o.notified = append(o.notified, n) }

func TestEngine_Observer(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, WithObserver(obs))
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	if err := e.AddReducers(map[string]Reducer{"b": counter, "a": counter}); err != nil {
		t.Fatal(err)
	}
	_, _, _ = e.Dispatch(primitives.Action{})

	if !reflect.DeepEqual(obs.queued, []int{1, 2}) {
		t.Errorf("queued = %v", obs.queued)
	}
	if !reflect.DeepEqual(obs.applied, []string{ActionTypeInit, "X"}) {
		t.Errorf("applied = %v", obs.applied)
	}
	if !reflect.DeepEqual(obs.added, [][]string{{"a", "b"}}) {
		t.Errorf("added = %v", obs.added)
	}
	if len(obs.failed) != 1 || !errors.Is(obs.failed[0], primitives.ErrUndefinedType) {
		t.Errorf("failed = %v", obs.failed)
	}
	if !reflect.DeepEqual(obs.notified, []int{0}) {
		t.Errorf("notified = %v", obs.notified)
	}
}

func TestEngine_LogsQueuedActions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestEngine(t, WithLogger(logger), WithID("logged"))
	if _, _, err := e.Dispatch(primitives.NewAction("X", nil)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "action queued") || !strings.Contains(out, "type=X") || !strings.Contains(out, "store=logged") {
		t.Errorf("unexpected log output: %s", out)
	}
}
