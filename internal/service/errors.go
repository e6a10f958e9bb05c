package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

var (
	// ErrItemNotFound is returned when an item does not exist or belongs to another owner.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidCalendarRange is returned for impossible year, month or day values.
	ErrInvalidCalendarRange = errors.New("invalid calendar range")
	// ErrInvalidItem is returned when an item payload is unusable after normalisation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrOwnerRequired is returned when an operation is attempted without a caller identity.
	ErrOwnerRequired = errors.New("owner is required")
	// ErrInvalidScheduleRequest re-exports the scheduler validation error for handlers.
	ErrInvalidScheduleRequest = scheduler.ErrInvalidScheduleRequest
)

// PersistenceError wraps a storage failure that aborted a scheduling pass.
// Chunks committed before the failure are kept.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *PersistenceError
	if errors.As(err, &existing) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
