package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the booking and review services.  Handlers map
// them to HTTP statuses with errors.Is.
var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("not owner")
	ErrConflict          = errors.New("date conflict")
	ErrSpaceUnavailable  = errors.New("space unavailable")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrDuplicate         = errors.New("duplicate")
)

// Error is a domain failure with a message that is safe to show to the
// client.  BookingIDs carries the conflicting bookings of a ConflictError
// for logging; it is not part of the public response.
type Error struct {
	Kind       error
	Msg        string
	BookingIDs []uint64
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// PublicMessage returns the client-facing message of a domain error, or
// fallback for anything else.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return fallback
}
