package program

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)

// InvalidStateError is returned when an action is attempted against a day
// state or enrollment status that forbids it. errors.Is(err, ErrInvalidState)
// holds for it.
type InvalidStateError struct {
	Action       string
	EnrollmentID int
	DayNumber    int
	DayState     DayState
	Status       EnrollmentStatus
	Reason       string
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("cannot %s enrollment %d", e.Action, e.EnrollmentID)
	if e.DayNumber > 0 {
		msg = fmt.Sprintf("cannot %s day %d of enrollment %d", e.Action, e.DayNumber, e.EnrollmentID)
	}
	if e.DayState != "" {
		msg += fmt.Sprintf(": day is %s", e.DayState)
	} else if e.Status != "" {
		msg += fmt.Sprintf(": enrollment is %s", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// StoreError wraps a persistence failure. It is never retried internally.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %s", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure was a timeout, in which case the
// caller may retry the whole command.
func (e *StoreError) Retryable() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	return errors.As(e.Err, &timeoutErr) && timeoutErr.Timeout()
}

// IsRetryable reports whether err carries a retryable StoreError.
func IsRetryable(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Retryable()
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

// wrapStoreErr leaves domain errors untouched and wraps everything else
// into a StoreError.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidArgument) {
		return err
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// ErrInvalidArgument marks malformed command input (empty ids, unknown statuses).
var ErrInvalidArgument = errors.New("invalid argument")

// ConflictError is returned when a user already holds an ENROLLED or ACTIVE
// enrollment. errors.Is(err, ErrConflict) holds for it.
type ConflictError struct {
	UserID       string
	EnrollmentID int
}

func (e *ConflictError) Error() string {
	if e.EnrollmentID == 0 {
		return fmt.Sprintf("user %s already has an active enrollment", e.UserID)
	}
	return fmt.Sprintf("user %s already has active enrollment %d", e.UserID, e.EnrollmentID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
