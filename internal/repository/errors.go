package repository

import "fmt"

// PersistenceError marks a failed durable write. Callers that maintain
// in-memory state alongside the database key off this type to skip their
// memory update when the write did not land.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
