package primitives

import "errors"

// Validation and runtime errors surfaced synchronously to the caller.
// Match with errors.Is; call sites wrap them with context.
var (
	ErrInvalidAction       = errors.New("storex: actions must be plain objects; use custom middleware for async actions")
	ErrUndefinedType       = errors.New(`storex: actions may not have an undefined "type" property; have you misspelled a constant?`)
	ErrReentrantDispatch   = errors.New("storex: reducers and listeners may not dispatch actions")
	ErrNotCallable         = errors.New("storex: expected a function")
	ErrUndefinedSliceState = errors.New("storex: reducer returned undefined state")
	ErrUnknownSelector     = errors.New("storex: selector not registered")
)
