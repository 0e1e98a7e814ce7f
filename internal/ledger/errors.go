package ledger

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrUnavailable means the backing store could not be reached or was never
	// initialised. Callers should report the outage, not re-parse the message.
	ErrUnavailable = errors.New("ledger store unavailable")
	// ErrOperationFailed means the store was reachable but the operation failed.
	ErrOperationFailed = errors.New("ledger operation failed")
)

// StoreError carries the failing operation, its class and the cause.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Is matches the error class so errors.Is(err, ErrUnavailable) works.
func (e *StoreError) Is(target error) bool {
	return target == e.Kind
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a StoreUnavailable failure of op.
func Unavailable(op string, err error) error {
	return &StoreError{Op: op, Kind: ErrUnavailable, Err: err}
}

// Failed wraps err as a StoreOperationFailed failure of op.
func Failed(op string, err error) error {
	return &StoreError{Op: op, Kind: ErrOperationFailed, Err: err}
}

// Classify wraps err for op, choosing the class from the cause: network
// errors and expired deadlines mean the store is unreachable. Errors already
// classified are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return Unavailable(op, err)
	}
	return Failed(op, err)
}

// Reason returns the innermost message of a store error, suitable for
// showing to a user verbatim.
func Reason(err error) string {
	var se *StoreError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}
