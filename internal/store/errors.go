package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ConflictError is a compare-and-swap miss: the row changed (or was
// created) since it was read.
type ConflictError struct {
	Table   string
	Key     string
	Version int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: version %d is stale", e.Table, e.Key, e.Version)
}
