// Package apperr defines the reason-coded errors returned by the scheduling
// and booking layers. Handlers translate an Error's Kind into an HTTP status
// and expose its Reason so clients can tell rejections apart without parsing
// messages.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind groups reasons by how a caller should react to them.
type Kind int

const (
	KindValidation Kind = iota + 1 // input or placement rule broken
	KindRejected                   // request well formed but not allowed right now
	KindConflict                   // lost a race for a shared resource, retry may succeed
	KindState                      // operation not allowed in the current lifecycle state
	KindNotFound
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRejected:
		return "rejected"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Reason codes. They are part of the API response and must stay stable.
const (
	ReasonInvalidInput       = "invalid_input"
	ReasonBeforeLocalRelease = "before_local_release"
	ReasonForwardConflict    = "forward_conflict"
	ReasonTrailingConflict   = "trailing_conflict"
	ReasonSlotTaken          = "slot_taken"

	ReasonShowtimePast     = "showtime_past"
	ReasonNotInProgramming = "not_in_programming"
	ReasonNoSeats          = "no_seats"
	ReasonDuplicateSeat    = "duplicate_seat"
	ReasonSeatCap          = "seat_cap_exceeded"
	ReasonInvalidSeat      = "invalid_seat"
	ReasonWalkInRequired   = "walk_in_contact_required"

	ReasonSeatTaken = "seat_taken"

	ReasonCancelCutoff          = "cancel_cutoff"
	ReasonAlreadyCancelled      = "already_cancelled"
	ReasonAlreadyPaid           = "already_paid"
	ReasonHasFutureReservations = "has_future_reservations"
	ReasonMovieHasShowtimes     = "movie_has_showtimes"

	ReasonNotFound  = "not_found"
	ReasonForbidden = "forbidden"
)

// Conflict names the showtime that blocks a placement.
type Conflict struct {
	ShowtimeID uint64    `json:"showtime_id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
}

// Error is a domain failure carrying a stable reason code.
type Error struct {
	Kind     Kind
	Reason   string
	Field    string // set for validation errors tied to one input field
	Message  string
	Conflict *Conflict
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Reason)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Reason)
}

// Is matches another *Error with the same kind and reason, so callers can
// compare against a template with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

func Validation(field, reason, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason, Message: msg}
}

func Rejected(reason, msg string) *Error {
	return &Error{Kind: KindRejected, Reason: reason, Message: msg}
}

func ConflictErr(reason, msg string) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: msg}
}

func State(reason, msg string) *Error {
	return &Error{Kind: KindState, Reason: reason, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Reason: ReasonNotFound, Message: what + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Reason: ReasonForbidden, Message: msg}
}

// As unwraps err into an *Error when possible.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ReasonOf returns the reason code of err or "" when err is not an *Error.
func ReasonOf(err error) string {
	if e, ok := As(err); ok {
		return e.Reason
	}
	return ""
}
