package sqlite

import (
	"errors"
	"fmt"
)

// Store operations named in PersistenceError.
const (
	OpEnsureSchema = "ensure schema"
	OpAppend       = "append"
	OpHistory      = "history"
	OpCount        = "count"
)

// ErrPersistence matches every *PersistenceError via errors.Is.
var ErrPersistence = errors.New("persistence failure")

// PersistenceError reports a failed schema or write operation.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

// Is reports whether target is ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Constraint reports whether the failure was a constraint violation.
func (e *PersistenceError) Constraint() bool {
	return IsConstraintError(e.Err)
}
