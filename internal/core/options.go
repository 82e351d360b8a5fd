// Package core provides the runtime core tier of the store.
// Options for configuring Engine instances.
package core

import (
	"log/slog"

	"github.com/comalice/storex/internal/primitives"
)

const defaultHistorySize = 64

// WithID names the store; the ID keys persisted snapshots.
func WithID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}

// WithLogger configures the Engine with a structured logger.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver configures the Engine with a custom Observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithHistorySize bounds the applied-action history. Zero disables it.
func WithHistorySize(size int) Option {
	return func(e *Engine) {
		e.history = NewHistory(size)
	}
}

// WithReducer installs a root reducer at construction, so the constructor's
// INIT dispatch is applied instead of queued.
func WithReducer(r RootReducer) Option {
	return func(e *Engine) {
		e.reducer = r
	}
}

// WithPreloadedState seeds the state tree. Slices registered later keep the
// preloaded values.
func WithPreloadedState(state primitives.State) Option {
	return func(e *Engine) {
		if state != nil {
			e.state = state.Clone()
		}
	}
}
