package extensibility

import (
	"log/slog"
	"time"

	"github.com/comalice/storex/internal/primitives"
)

// DispatchFunc is the untyped dispatch signature middleware composes over.
// The terminal DispatchFunc validates its input with primitives.AsAction.
type DispatchFunc func(v any) (any, error)

// MiddlewareAPI is the view of the store handed to each middleware.
// Dispatch re-enters the full chain.
type MiddlewareAPI struct {
	GetState func() primitives.State
	Dispatch DispatchFunc
}

// Middleware wraps the next DispatchFunc in the chain.
type Middleware func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc

// Chain composes mws around terminal. The first middleware is outermost.
func Chain(getState func() primitives.State, terminal DispatchFunc, mws ...Middleware) DispatchFunc {
	if len(mws) == 0 {
		return terminal
	}
	var composed DispatchFunc
	api := MiddlewareAPI{
		GetState: getState,
		Dispatch: func(v any) (any, error) { return composed(v) },
	}
	next := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](api)(next)
	}
	composed = next
	return composed
}

// Thunk is a deferred dispatch. ThunkMiddleware invokes it instead of
// forwarding it to the reducers.
type Thunk func(dispatch DispatchFunc, getState func() primitives.State) (any, error)

// ThunkMiddleware runs Thunk values and forwards everything else.
func ThunkMiddleware(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
	return func(next DispatchFunc) DispatchFunc {
		return func(v any) (any, error) {
			if thunk, ok := v.(Thunk); ok {
				return thunk(api.Dispatch, api.GetState)
			}
			return next(v)
		}
	}
}

// LoggingMiddleware logs each dispatch with its type, duration and outcome.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(api MiddlewareAPI) func(next DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(v any) (any, error) {
				actionType := describe(v)
				logger.Debug("storex: dispatching", "type", actionType)
				start := time.Now()
				result, err := next(v)
				if err != nil {
					logger.Warn("storex: dispatch failed", "type", actionType, "duration", time.Since(start), "error", err)
					return result, err
				}
				logger.Debug("storex: dispatched", "type", actionType, "duration", time.Since(start))
				return result, nil
			}
		}
	}
}

func describe(v any) string {
	if _, ok := v.(Thunk); ok {
		return "<thunk>"
	}
	if action, err := primitives.AsAction(v); err == nil {
		return action.TypeString()
	}
	return "<invalid>"
}
