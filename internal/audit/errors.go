package audit

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by Stats before the first snapshot build.
// Read operations never return it; they initialize on demand instead.
var ErrNotInitialized = errors.New("snapshot not initialized")

// ErrNotFound is returned when the requested event does not exist.
var ErrNotFound = errors.New("event not found")

// StorageError wraps a failed backing-store operation so transport layers
// can tell storage trouble apart from bad input.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
