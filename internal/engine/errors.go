package engine

import (
	"errors"
	"fmt"

	"github.com/abhisek/adaptly/internal/circuit"
	"github.com/abhisek/adaptly/internal/store"
)

// NotFoundError reports an unknown entity, such as a question that is
// not in the stated microskill.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// InvalidInputError is a request rejected before any scoring ran.
type InvalidInputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	msg := e.Field + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// StateConflictError means the stored state does not support the
// request. Callers should start a new session.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string { return "state conflict: " + e.Reason }

// StorageError wraps a collaborator failure. It is always retryable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is transient: storage failures, an
// open circuit, or a lost compare-and-swap.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *StorageError
	var ce *store.ConflictError
	return errors.As(err, &se) || errors.Is(err, circuit.ErrOpen) || errors.As(err, &ce)
}

func required(field, v string) error {
	if v == "" {
		return &InvalidInputError{Field: field, Reason: "is required"}
	}
	return nil
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
