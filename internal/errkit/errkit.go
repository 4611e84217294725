// Package errkit provides the structured error type shared across the
// indexing and search pipeline. Every error the core returns to a caller
// carries a Kind (from the fixed set in spec §7) so callers can branch on
// behavior without string matching.
package errkit

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the core's fixed error kinds.
type Kind string

const (
	// KindInvalidParams indicates a required input was absent or malformed.
	KindInvalidParams Kind = "InvalidParams"
	// KindNotFound indicates the requested project/collection/file does not exist.
	KindNotFound Kind = "NotFound"
	// KindConfigValidation indicates the configuration is internally inconsistent.
	KindConfigValidation Kind = "ConfigValidation"
	// KindBackendUnavailable indicates an embedder or vector-store could not be
	// reached after the adapter's retry budget was exhausted.
	KindBackendUnavailable Kind = "BackendUnavailable"
	// KindAlreadyRunning indicates a mutating operation conflicts with one in flight.
	KindAlreadyRunning Kind = "AlreadyRunning"
	// KindParseError is set per-file; it never aborts an indexing pass.
	KindParseError Kind = "ParseError"
	// KindCancelled indicates cooperative cancellation took effect.
	KindCancelled Kind = "Cancelled"
	// KindInternal is unclassified and always carries a diagnostic.
	KindInternal Kind = "Internal"
)

// Error is the structured error type returned across package boundaries in
// the core. It always carries a Kind, a human-readable Message, and may
// carry structured Data for programmatic inspection plus a wrapped Cause.
type Error struct {
	Kind    Kind
	Message string
	Data    map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap enables errors.Is/As across the wrapped Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithData attaches structured context and returns the receiver for chaining.
func (e *Error) WithData(key string, value any) *Error {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind from an existing error.
// Returns nil if err is nil, so call sites can write
// `return errkit.Wrap(errkit.KindInternal, err)` without a separate nil check.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	if message == "" {
		message = err.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// returning KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
