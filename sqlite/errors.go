package sqlite

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Kind classifies a binding-layer error so callers can tell user error,
// use-after-release and transient engine contention apart.
type Kind int

const (
	// KindGeneric is any engine or argument failure with no more specific
	// classification. The message carries the engine's error text.
	KindGeneric Kind = iota

	// KindLocked is SQLITE_LOCKED or SQLITE_BUSY. Callers may retry.
	KindLocked

	// KindClosed means the handle was the right kind but its native
	// resource has already been released.
	KindClosed

	// KindInvalidObject means a handle of the wrong kind was passed, for
	// example a cursor where a database was expected.
	KindInvalidObject

	// KindWrongType is a dynamic-type error detected before any native
	// call, such as a non-string query.
	KindWrongType
)

func (k Kind) String() string {
	switch k {
	case KindLocked:
		return "locked"
	case KindClosed:
		return "closed"
	case KindInvalidObject:
		return "invalid-object"
	case KindWrongType:
		return "wrong-type"
	default:
		return "error"
	}
}

// Error is the condition signaled to the guest for every binding failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrDatabaseClosed  = &Error{Kind: KindClosed, Message: "database closed"}
	ErrStatementClosed = &Error{Kind: KindClosed, Message: "statement closed"}
)

// translate maps a native engine status to a guest-visible condition.
// SQLITE_LOCKED and SQLITE_BUSY become the distinct retryable kind; every
// other failure becomes a generic condition carrying the engine's message.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked {
			return &Error{Kind: KindLocked, Message: serr.Error()}
		}
		return &Error{Kind: KindGeneric, Message: serr.Error()}
	}
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	return &Error{Kind: KindGeneric, Message: err.Error()}
}
