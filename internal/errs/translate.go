package errs

import (
	"context"
	"errors"
	"regexp"
)

// PostgreSQL SQLSTATE codes that carry a kind of their own.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	SQLStateUniqueViolation     = "23505"
	SQLStateForeignKeyViolation = "23503"
	SQLStateCheckViolation      = "23514"
	SQLStateUndefinedTable      = "42P01"
	SQLStateUndefinedObject     = "42704"
	SQLStateInvalidName         = "42602"
	SQLStateInsufficientPriv    = "42501"
)

// KindForSQLState maps a SQLSTATE code to an ErrKind.
// Codes without a dedicated kind map to ErrKindQueryFailed, except class 08
// which is a connection failure.
func KindForSQLState(code string) ErrKind {
	switch code {
	case SQLStateUniqueViolation:
		return ErrKindUniqueViolation
	case SQLStateForeignKeyViolation:
		return ErrKindForeignKeyViolation
	case SQLStateCheckViolation:
		return ErrKindCheckViolation
	case SQLStateUndefinedTable, SQLStateUndefinedObject:
		return ErrKindNotFound
	case SQLStateInvalidName:
		return ErrKindMalformedIdentifier
	case SQLStateInsufficientPriv:
		return ErrKindPermissionDenied
	}
	if len(code) >= 2 && code[:2] == "08" {
		return ErrKindConnectionFailed
	}
	return ErrKindQueryFailed
}

// messagePattern pairs a native error text pattern with the kind it implies.
type messagePattern struct {
	re   *regexp.Regexp
	kind ErrKind
}

// messagePatterns is evaluated top-down; the first match wins. It is used
// for drivers that surface only the server's message text.
var messagePatterns = []messagePattern{
	{regexp.MustCompile(`duplicate key value violates unique constraint`), ErrKindUniqueViolation},
	{regexp.MustCompile(`violates foreign key constraint`), ErrKindForeignKeyViolation},
	{regexp.MustCompile(`violates check constraint`), ErrKindCheckViolation},
	{regexp.MustCompile(`(relation|sequence|schema) "[^"]*" does not exist`), ErrKindNotFound},
	{regexp.MustCompile(`invalid name syntax`), ErrKindMalformedIdentifier},
}

// Translate classifies a raw session error into an *Error.
// Errors that already are *Error pass through unchanged. Context errors become
// ErrKindTimeout; everything else is matched against the message pattern
// table and falls back to ErrKindQueryFailed.
func Translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(ErrKindTimeout, msg, err)
	}
	return Wrap(KindForMessage(err.Error()), msg, err)
}

// KindForMessage returns the kind implied by a native error message, or
// ErrKindQueryFailed when no pattern matches.
func KindForMessage(text string) ErrKind {
	for _, p := range messagePatterns {
		if p.re.MatchString(text) {
			return p.kind
		}
	}
	return ErrKindQueryFailed
}
