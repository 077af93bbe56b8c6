// Package holonerr defines the error taxonomy shared across the holon
// engine: a closed set of error kinds plus a concrete error type that
// carries one of those kinds and an optional wrapped cause.
package holonerr

import "fmt"

// Kind enumerates the error taxonomy. Dispatch maps each Kind to a
// status code deterministically (see pkg/dispatch/status.go).
type Kind string

const (
	NotAccessible       Kind = "NotAccessible"
	InvalidHolonRef     Kind = "InvalidHolonReference"
	HolonNotFound       Kind = "HolonNotFound"
	DuplicateError      Kind = "DuplicateError"
	EmptyField          Kind = "EmptyField"
	InvalidRelationship Kind = "InvalidRelationship"
	InvalidParameter    Kind = "InvalidParameter"
	InvalidType         Kind = "InvalidType"
	InvalidTransition   Kind = "InvalidTransition"
	ValidationError     Kind = "ValidationError"
	CommitFailure       Kind = "CommitFailure"
	CacheError          Kind = "CacheError"
	HashConversion      Kind = "HashConversion"
	RecordConversion    Kind = "RecordConversion"
	Utf8Conversion      Kind = "Utf8Conversion"
	NotImplemented      Kind = "NotImplemented"
	FailedToBorrow      Kind = "FailedToBorrow"
	FailedToAcquireLock Kind = "FailedToAcquireLock"
	IndexOutOfRange     Kind = "IndexOutOfRange"
)

// Error is the concrete error type returned by every fallible operation
// in the engine. A reference used against a context it isn't bound to
// is reported as an InvalidHolonRef error too — see pkg/reference.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind, carrying cause as Unwrap() target.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and
// the zero Kind otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// As is a thin wrapper avoiding an extra "errors" import at call sites
// that only care about *Error.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
