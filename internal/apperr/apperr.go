package apperr

import (
	"github.com/pkg/errors"
)

// Kind classifies an error for callers. The transaction engine guarantees
// that any error it returns left no partial ledger mutation behind.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidInput
	KindInsufficientStock
	KindStoreUnavailable
)

type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

func New(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, cause: errors.WithStack(cause)}
}

func NotFound(msg string) error          { return New(KindNotFound, msg) }
func InvalidInput(msg string) error      { return New(KindInvalidInput, msg) }
func InsufficientStock(msg string) error { return New(KindInsufficientStock, msg) }

// StoreUnavailable wraps a failed ledger store call. Writes are never retried
// here since a blind retry of a stock movement could double-apply it.
func StoreUnavailable(cause error, msg string) error {
	return Wrap(KindStoreUnavailable, cause, msg)
}

// KindOf walks the error chain looking for a classified error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
