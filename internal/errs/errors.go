// Package errs provides the unified error type used across pgcatalog.
//
// Every subsystem (sessions, the dialect, snapshot storage, the HTTP server)
// wraps its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a session, wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "query timed out", pgErr)
//
//	// In a handler, check the error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown             ErrKind = iota
	ErrKindNotFound                    // table, sequence, object or row absent
	ErrKindUnsupportedType             // no logical mapping or literal form for a type
	ErrKindMalformedIdentifier         // unparseable quoted/dotted name
	ErrKindUniqueViolation             // duplicate key value
	ErrKindForeignKeyViolation         // missing parent / dangling child row
	ErrKindCheckViolation              // check constraint failed
	ErrKindConnectionFailed            // cannot reach the backend
	ErrKindTimeout                     // context deadline / cancellation
	ErrKindQueryFailed                 // SQL or storage operation error
	ErrKindInvalidInput                // bad arguments from the caller
	ErrKindPermissionDenied            // access denied / auth failure
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindUnsupportedType:
		return "unsupported_type"
	case ErrKindMalformedIdentifier:
		return "malformed_identifier"
	case ErrKindUniqueViolation:
		return "unique_violation"
	case ErrKindForeignKeyViolation:
		return "foreign_key_violation"
	case ErrKindCheckViolation:
		return "check_violation"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all pgcatalog subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a missing table, sequence or object.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsUnsupportedType reports whether err was raised because a type has no
// logical mapping or no safe literal form.
func IsUnsupportedType(err error) bool {
	return KindOf(err) == ErrKindUnsupportedType
}

// IsMalformedIdentifier reports whether err was raised while parsing a
// quoted or dotted identifier.
func IsMalformedIdentifier(err error) bool {
	return KindOf(err) == ErrKindMalformedIdentifier
}

// IsUniqueViolation reports whether err is a uniqueness constraint violation.
func IsUniqueViolation(err error) bool {
	return KindOf(err) == ErrKindUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign-key constraint violation.
func IsForeignKeyViolation(err error) bool {
	return KindOf(err) == ErrKindForeignKeyViolation
}

// IsConstraintViolation reports whether err is any constraint violation kind.
func IsConstraintViolation(err error) bool {
	switch KindOf(err) {
	case ErrKindUniqueViolation, ErrKindForeignKeyViolation, ErrKindCheckViolation:
		return true
	}
	return false
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
