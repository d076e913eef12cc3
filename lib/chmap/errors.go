package chmap

import (
	"errors"
	"fmt"

	"github.com/imlxw/Chronicle-Map/lib/engine"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

// Code classifies map operation failures.
type Code uint8

const (
	// CodeInternal covers failures that indicate a bug in the map core or a
	// strategy implementation.
	CodeInternal Code = iota
	// CodeTypeMismatch means a supplied key or value was rejected by its
	// codec before any lock was taken.
	CodeTypeMismatch
	// CodeAcquireContract means an acquire-style operation produced an
	// instance other than the caller-supplied one. This signals a bug in the
	// map-operations/codec pairing, not a transient condition.
	CodeAcquireContract
	// CodeNoDefaultValue means an acquire-style operation was called on a
	// map configured without a default-value policy.
	CodeNoDefaultValue
	// CodeCapacity means the storage engine could not allocate entry space.
	// The operation is not retried by this layer.
	CodeCapacity
	// CodeLockUpgrade means a nested operation needed a write lock on a
	// segment the outer operation holds in read mode. Locks are never
	// upgraded inside callbacks.
	CodeLockUpgrade
)

func (c Code) String() string {
	switch c {
	case CodeInternal:
		return "Internal"
	case CodeTypeMismatch:
		return "TypeMismatch"
	case CodeAcquireContract:
		return "AcquireContract"
	case CodeNoDefaultValue:
		return "NoDefaultValue"
	case CodeCapacity:
		return "Capacity"
	case CodeLockUpgrade:
		return "LockUpgrade"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by all map operations. Besides the
// primary failure it can carry secondary failures encountered during
// guaranteed-release cleanup (e.g. a lock release that failed while the
// primary error was already propagating). Secondary failures never replace
// the primary one and are never silently dropped.
type Error struct {
	Code       Code
	Msg        string
	Cause      error
	Suppressed []error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("chmap (code %s): %s", e.Code, e.Msg)
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	if n := len(e.Suppressed); n > 0 {
		s += fmt.Sprintf(" (+%d suppressed cleanup failure(s))", n)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// CodeOf extracts the Code from an error returned by a map operation.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func wrapError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// attach records a secondary cleanup failure on the primary error. When the
// primary is not already a *Error it is wrapped so the secondary has a place
// to live.
func attach(primary, secondary error) error {
	if secondary == nil {
		return primary
	}
	var e *Error
	if !errors.As(primary, &e) {
		e = wrapError(CodeInternal, "operation failed", primary)
	}
	e.Suppressed = append(e.Suppressed, secondary)
	return e
}

// wrapEngine maps storage engine failures onto the operation error taxonomy.
func wrapEngine(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrSegmentFull) {
		return wrapError(CodeCapacity, "segment out of space", err)
	}
	return wrapError(CodeInternal, "storage engine failure", err)
}
