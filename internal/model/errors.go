package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("not logged in")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrValidation         = errors.New("invalid input")

	ErrAlreadyBooked    = errors.New("meeting already booked")
	ErrMeetingInPast    = errors.New("meeting has already ended")
	ErrInvalidDuration  = errors.New("duration must be positive")
	ErrInvalidStartTime = errors.New("start time is in the past")

	ErrSetupLocked = errors.New("setup is locked")

	ErrStorage = errors.New("storage failure")
)

// StorageError wraps a persistence failure. It matches ErrStorage and keeps
// the driver error for logs.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsPolicy reports errors caused by the caller's input rather than a fault.
func IsPolicy(err error) bool {
	for _, e := range []error{
		ErrValidation, ErrAlreadyBooked, ErrMeetingInPast,
		ErrInvalidDuration, ErrInvalidStartTime, ErrDuplicateUsername,
		ErrSetupLocked,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
