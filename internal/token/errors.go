package token

import (
	"errors"
	"fmt"
)

// ErrMalformedSnapshot marks raw records missing required identity fields.
// Match with errors.Is; the concrete *MalformedSnapshotError carries the field.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

type MalformedSnapshotError struct {
	Field  string
	Reason string
}

func (e *MalformedSnapshotError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("malformed snapshot: missing %s", e.Field)
	}
	return fmt.Sprintf("malformed snapshot: %s %s", e.Field, e.Reason)
}

func (e *MalformedSnapshotError) Unwrap() error { return ErrMalformedSnapshot }
