package data

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("download reference not found")
	ErrConflict         = errors.New("download reference already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrActionNotAllowed = errors.New("action not allowed in current state")
)

// PersistenceError reports that the daemon accepted a download but the
// reference could not be saved. The remote download keeps running.
type PersistenceError struct {
	GID string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("download %s started but reference not saved: %v", e.GID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
