package scheduling

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories the lifecycle manager reports.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "scheduling_conflict"
	KindInvalidTransition   Kind = "invalid_state_transition"
	KindStorage             Kind = "storage_error"
	KindProviderUnavailable Kind = "provider_unavailable"
)

// Error carries a Kind alongside a human-readable message. Scheduling
// conflicts additionally carry the id of the appointment already occupying
// the window, when known.
type Error struct {
	Kind       Kind
	Msg        string
	ConflictID int64
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the failure kind from err, or KindStorage for anything
// that is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ConflictIDOf returns the conflicting appointment id carried by err, if any.
func ConflictIDOf(err error) (int64, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindConflict && e.ConflictID != 0 {
		return e.ConflictID, true
	}
	return 0, false
}

func validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func conflictErr(conflictID int64) *Error {
	msg := "requested window overlaps an existing appointment"
	if conflictID != 0 {
		msg = fmt.Sprintf("requested window overlaps appointment %d", conflictID)
	}
	return &Error{Kind: KindConflict, Msg: msg, ConflictID: conflictID}
}

func invalidTransitionf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidTransition, Msg: fmt.Sprintf(format, args...)}
}

func storageErr(msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Msg: msg, cause: cause}
}
