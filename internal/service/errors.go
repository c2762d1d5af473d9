package service

import "errors"

// Kind classifies a booking failure.  Handlers map kinds to HTTP statuses.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindForbidden     Kind = "forbidden"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindPersistence   Kind = "persistence"
)

// Error is the single error type returned by BookingService.  Message is
// safe to show to clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target carries no message,
// so errors.Is(err, ErrConflict) works for every conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrQuotaExceeded = &Error{Kind: KindQuotaExceeded}
	ErrPersistence   = &Error{Kind: KindPersistence}
)

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// KindOf returns the kind of err.  Errors that are not *Error are
// persistence failures by definition: nothing else escapes the service.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
