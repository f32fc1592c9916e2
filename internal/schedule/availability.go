package schedule

import (
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// Listing is the public availability class of a movie.
type Listing string

const (
	ListingUpcoming           Listing = "UPCOMING"             // programming has not started yet
	ListingNotReleasedLocally Listing = "NOT_RELEASED_LOCALLY" // programmed, not yet released here, nothing scheduled
	ListingInProgramming      Listing = "IN_PROGRAMMING"
	ListingFestival           Listing = "FESTIVAL"
	ListingUnscheduled        Listing = "UNSCHEDULED" // programmed but no future showtimes
)

// InProgramming reports whether the movie's programming has started on the
// cinema's calendar. Bookings are refused until it has, for every role.
func InProgramming(m model.Movie, now time.Time, loc *time.Location) bool {
	return !m.ProgrammingStart.After(model.DateOf(now, loc))
}

// ReleasedLocally reports whether the movie may already be screened here.
func ReleasedLocally(m model.Movie, now time.Time, loc *time.Location) bool {
	return !m.LocalRelease.After(model.DateOf(now, loc))
}

// Classify places a movie in exactly one listing class.
func Classify(m model.Movie, now time.Time, hasFutureShowtime bool, loc *time.Location) Listing {
	if m.Festival {
		if hasFutureShowtime {
			return ListingFestival
		}
		return ListingUnscheduled
	}
	if !InProgramming(m, now, loc) {
		return ListingUpcoming
	}
	if hasFutureShowtime {
		return ListingInProgramming
	}
	if !ReleasedLocally(m, now, loc) {
		return ListingNotReleasedLocally
	}
	return ListingUnscheduled
}
