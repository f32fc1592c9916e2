package schedule

import (
	"fmt"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// Slot is an existing showtime in the room being checked.
type Slot struct {
	ShowtimeID uint64
	Title      string
	RuntimeMin int
	StartsAt   time.Time
}

// Interval returns the span the slot occupies, buffer included.
func (s Slot) Interval() Interval {
	return OccupiedInterval(time.Duration(s.RuntimeMin)*time.Minute, s.StartsAt)
}

// Candidate is a proposed showtime. ShowtimeID is zero for a new one and set
// when an existing showtime is being moved, so it is not checked against
// itself.
type Candidate struct {
	ShowtimeID uint64
	StartsAt   time.Time
}

// ValidatePlacement decides whether the candidate may be placed in a room
// whose timeline is existing. The checks run in order and the first failure
// is returned:
//
//  1. the showtime day must not precede the movie's local release;
//  2. no existing showtime may start inside the candidate's occupied interval;
//  3. the nearest earlier showtime must have cleared the room (buffer
//     included) by the candidate's start.
//
// Only the nearest earlier showtime is considered in step 3; the timeline is
// assumed non-overlapping already.
func ValidatePlacement(c Candidate, movie model.Movie, existing []Slot, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if model.DateOf(c.StartsAt, loc).Before(movie.LocalRelease) {
		return apperr.Validation("starts_at", apperr.ReasonBeforeLocalRelease,
			fmt.Sprintf("the showtime cannot be scheduled before the local release on %s", movie.LocalRelease.Format(model.DateLayout)))
	}

	span := OccupiedInterval(movie.Runtime(), c.StartsAt)

	var forward *Slot
	var previous *Slot
	for i := range existing {
		s := &existing[i]
		if c.ShowtimeID != 0 && s.ShowtimeID == c.ShowtimeID {
			continue
		}
		if span.Contains(s.StartsAt) {
			if forward == nil || s.StartsAt.Before(forward.StartsAt) {
				forward = s
			}
			continue
		}
		if s.StartsAt.Before(c.StartsAt) && (previous == nil || s.StartsAt.After(previous.StartsAt)) {
			previous = s
		}
	}

	if forward != nil {
		e := apperr.Validation("starts_at", apperr.ReasonForwardConflict,
			fmt.Sprintf("the room is busy: %q starts at %s before this showtime and its cleaning end",
				forward.Title, forward.StartsAt.In(loc).Format("2006-01-02 15:04")))
		e.Conflict = &apperr.Conflict{ShowtimeID: forward.ShowtimeID, Title: forward.Title, StartsAt: forward.StartsAt}
		return e
	}
	if previous != nil && previous.Interval().End.After(c.StartsAt) {
		e := apperr.Validation("starts_at", apperr.ReasonTrailingConflict,
			fmt.Sprintf("the room is still busy with %q (%s) including cleaning",
				previous.Title, previous.StartsAt.In(loc).Format("2006-01-02 15:04")))
		e.Conflict = &apperr.Conflict{ShowtimeID: previous.ShowtimeID, Title: previous.Title, StartsAt: previous.StartsAt}
		return e
	}
	return nil
}
