// Package errs defines the structured error kinds Sentinel's core surfaces
// to callers. Core operations never log or print; they return one of
// these so the presentation layer can choose wording and an exit code.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a core error for presentation-layer mapping to exit
// codes (0 success, 1 user error, 2 system error, 130 interrupted).
type Kind int

const (
	// Unknown is the zero value; KindOf falls back to it for foreign errors.
	Unknown Kind = iota
	NotFound
	Conflict
	InvalidInput
	SpawnFailed
	StopFailed
	CorruptState
	IOFailure
	AlreadyRunning
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Conflict:
		return "Conflict"
	case InvalidInput:
		return "InvalidInput"
	case SpawnFailed:
		return "SpawnFailed"
	case StopFailed:
		return "StopFailed"
	case CorruptState:
		return "CorruptState"
	case IOFailure:
		return "IOFailure"
	case AlreadyRunning:
		return "AlreadyRunning"
	default:
		return "Unknown"
	}
}

// Error is the structured error type returned by core operations.
type Error struct {
	Kind    Kind
	Subject string // selector, name, port, or path the error is about
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Subject != "" {
			return fmt.Sprintf("%s(%s): %v", e.Kind, e.Subject, e.Cause)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	if e.Subject != "" {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Subject)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Cause: cause}
}

// Is reports whether err carries the given Kind, per errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, and Unknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Index pairs a zero-based position within a bulk operation with the
// error that occurred for that target.
type Index struct {
	Pos int
	Err error
}

// MultiError aggregates per-target failures from a bulk operation
// (group start/stop/restart, stopall, a restart-supervisor sweep). The
// bulk operation itself always runs to completion; MultiError just
// reports which positions failed and why.
type MultiError struct {
	Errors []Index
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	return fmt.Sprintf("%d of the targeted operations failed (first: %v)", len(m.Errors), m.Errors[0].Err)
}

// Add appends a failure at position pos, unless err is nil.
func (m *MultiError) Add(pos int, err error) {
	if err == nil {
		return
	}
	m.Errors = append(m.Errors, Index{Pos: pos, Err: err})
}

// ErrOrNil returns m if it carries any failures, or nil otherwise — so
// callers can do `return multi.ErrOrNil()` without an extra len check.
func (m *MultiError) ErrOrNil() error {
	if m == nil || len(m.Errors) == 0 {
		return nil
	}
	return m
}
