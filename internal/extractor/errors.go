package extractor

import (
	"context"
	"errors"
	"fmt"
)

// ConfigurationError marks input that makes a run impossible: an empty
// keyword list, a job without candidates. It is fatal and aborts the run
// before any unit is dispatched.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// FetchError wraps a browser collaborator failure. Transient fetch errors
// (rate limits, stale elements, timeouts) are retry-eligible; fatal ones
// (navigation failure, dead session) abort the remainder of the unit.
type FetchError struct {
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s fetch error: %v", kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError wraps a storage collaborator failure with the same transient
// versus fatal split.
type WriteError struct {
	Transient bool
	Err       error
}

func (e *WriteError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s write error: %v", kind, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// TransientFetch tags err as a retryable browser failure.
func TransientFetch(err error) error { return &FetchError{Transient: true, Err: err} }

// FatalFetch tags err as a unit-aborting browser failure.
func FatalFetch(err error) error { return &FetchError{Transient: false, Err: err} }

// TransientWrite tags err as a retryable storage failure.
func TransientWrite(err error) error { return &WriteError{Transient: true, Err: err} }

// FatalWrite tags err as a non-retryable storage failure.
func FatalWrite(err error) error { return &WriteError{Transient: false, Err: err} }

// IsTransient reports whether err is retry-eligible. Cancellation is a
// control signal, never a retryable failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	var we *WriteError
	if errors.As(err, &we) {
		return we.Transient
	}
	return false
}

// IsFatalFetch reports whether err is a browser failure that must abort the
// remainder of the current unit.
func IsFatalFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && !fe.Transient
}
