package pinflow

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPin is returned for input that is not exactly four digits.
	// The verifier is not called.
	ErrInvalidPin = errors.New("PIN must be exactly 4 digits")

	// ErrBusy is returned while a submission is outstanding.
	ErrBusy = errors.New("a PIN submission is already in progress")

	// ErrNoPendingAction is returned when a PIN is submitted with nothing
	// to unlock.
	ErrNoPendingAction = errors.New("no pending action")

	// ErrUnsupportedAction is returned when an action that is not gated
	// by a PIN is requested.
	ErrUnsupportedAction = errors.New("action does not require a PIN")
)

// PinIncorrectError is a rejected PIN. The user may try again.
type PinIncorrectError struct {
	AttemptsLeft *int
	Message      string
}

func (e *PinIncorrectError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.AttemptsLeft != nil {
		return fmt.Sprintf("incorrect PIN, %d attempt(s) remaining", *e.AttemptsLeft)
	}
	return "incorrect PIN"
}

// PinLockedError means too many failed attempts. Submissions are refused
// until Until.
type PinLockedError struct {
	Until time.Time
}

func (e *PinLockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked until %s", e.Until.Format(time.RFC3339))
}

// NetworkError wraps a failed call to a collaborator. Nothing is retried.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
