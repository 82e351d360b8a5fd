// Package primitives provides the foundational, zero-dependency data structures
// for the store engine.
//
// This package and internal/core use ONLY the Go standard library.
// Adapters (internal/production, internal/devtools) carry the external deps.
//
// Core invariants:
// - Actions are immutable tagged records (Action.Type must be defined)
// - A State tree is replaced wholesale, never mutated in place
// - Identity comparison (SameValue) drives change detection and memoization
package primitives
