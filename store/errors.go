package store

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec marks a query spec that cannot be turned into SQL: an
// unknown field, an unsupported operator or a value of the wrong kind.
var ErrInvalidSpec = errors.New("invalid query spec")

// PersistenceError reports a batch that could not be committed. Nothing
// from the batch was written.
type PersistenceError struct {
	BatchSize int
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist batch of %d records: %v", e.BatchSize, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// QueryError reports the spec that failed a fan-out. Index is its position
// in the caller's slice.
type QueryError struct {
	Index int
	Spec  Spec
	Err   error
}

func (e *QueryError) Error() string {
	name := e.Spec.Name
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("query %d (%s): %v", e.Index, name, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
