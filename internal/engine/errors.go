package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every *InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ErrMissingDependency is returned by New when a required dependency is nil.
var ErrMissingDependency = errors.New("engine dependency is required")

// ErrClosed is returned for cache misses after Close.
var ErrClosed = errors.New("engine is closed")

// InvalidInputError rejects a query before any I/O happens.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// LookupError is a lookup that could not produce a result, typically because
// the fetch was cancelled or timed out.
type LookupError struct {
	Key string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q: %v", e.Key, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
