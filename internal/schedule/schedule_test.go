package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
	"github.com/iliyamo/cinepiu-booking/internal/model"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func movie(runtime int, local string) model.Movie {
	return model.Movie{ID: 1, Title: "Nuovo", RuntimeMin: runtime, ReleaseDate: day(local), LocalRelease: day(local), ProgrammingStart: day(local)}
}

func TestOccupiedIntervalAddsBuffer(t *testing.T) {
	iv := OccupiedInterval(100*time.Minute, at("2025-05-01 18:00"))
	assert.Equal(t, at("2025-05-01 19:55"), iv.End)
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a := Interval{Start: at("2025-05-01 18:00"), End: at("2025-05-01 20:00")}
	b := Interval{Start: at("2025-05-01 20:00"), End: at("2025-05-01 22:00")}
	c := Interval{Start: at("2025-05-01 19:59"), End: at("2025-05-01 22:00")}

	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(a))
}

func TestValidatePlacement(t *testing.T) {
	existing := []Slot{
		{ShowtimeID: 10, Title: "Pranzo", RuntimeMin: 100, StartsAt: at("2025-05-01 18:00")}, // busy until 19:55
		{ShowtimeID: 11, Title: "Cena", RuntimeMin: 90, StartsAt: at("2025-05-01 22:00")},
	}

	tests := []struct {
		name     string
		cand     Candidate
		runtime  int
		local    string
		reason   string
		conflict uint64
	}{
		{name: "fits between", cand: Candidate{StartsAt: at("2025-05-01 19:55")}, runtime: 110, local: "2025-04-01"},
		{name: "trailing by one minute", cand: Candidate{StartsAt: at("2025-05-01 19:54")}, runtime: 60, local: "2025-04-01", reason: apperr.ReasonTrailingConflict, conflict: 10},
		{name: "forward hits next start", cand: Candidate{StartsAt: at("2025-05-01 20:00")}, runtime: 106, local: "2025-04-01", reason: apperr.ReasonForwardConflict, conflict: 11},
		{name: "ends exactly at next start", cand: Candidate{StartsAt: at("2025-05-01 20:00")}, runtime: 105, local: "2025-04-01"},
		{name: "same start", cand: Candidate{StartsAt: at("2025-05-01 18:00")}, runtime: 60, local: "2025-04-01", reason: apperr.ReasonForwardConflict, conflict: 10},
		{name: "before local release", cand: Candidate{StartsAt: at("2025-05-01 10:00")}, runtime: 60, local: "2025-05-02", reason: apperr.ReasonBeforeLocalRelease},
		{name: "moving itself", cand: Candidate{ShowtimeID: 10, StartsAt: at("2025-05-01 18:30")}, runtime: 100, local: "2025-04-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlacement(tt.cand, movie(tt.runtime, tt.local), existing, time.UTC)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Equal(t, "starts_at", e.Field)
			assert.Equal(t, tt.reason, e.Reason)
			if tt.conflict != 0 {
				require.NotNil(t, e.Conflict)
				assert.Equal(t, tt.conflict, e.Conflict.ShowtimeID)
			}
		})
	}
}

func TestValidatePlacementOnlyChecksNearestPrevious(t *testing.T) {
	existing := []Slot{
		{ShowtimeID: 1, Title: "Lungo", RuntimeMin: 300, StartsAt: at("2025-05-01 10:00")},
		{ShowtimeID: 2, Title: "Corto", RuntimeMin: 30, StartsAt: at("2025-05-01 14:00")},
	}
	// Slot 1 would still be running at 14:50 but slot 2 is the nearest earlier one.
	err := ValidatePlacement(Candidate{StartsAt: at("2025-05-01 14:50")}, movie(60, "2025-04-01"), existing, time.UTC)
	assert.NoError(t, err)
}

func TestClassify(t *testing.T) {
	now := at("2025-05-10 12:00")
	regular := func(prog, local string) model.Movie {
		return model.Movie{ReleaseDate: day(local), LocalRelease: day(local), ProgrammingStart: day(prog)}
	}

	assert.Equal(t, ListingUpcoming, Classify(regular("2025-05-11", "2025-05-12"), now, true, time.UTC))
	assert.Equal(t, ListingInProgramming, Classify(regular("2025-05-10", "2025-05-12"), now, true, time.UTC))
	assert.Equal(t, ListingNotReleasedLocally, Classify(regular("2025-05-08", "2025-05-12"), now, false, time.UTC))
	assert.Equal(t, ListingUnscheduled, Classify(regular("2025-05-01", "2025-05-01"), now, false, time.UTC))

	fest := regular("2025-06-01", "2025-06-01")
	fest.Festival = true
	assert.Equal(t, ListingFestival, Classify(fest, now, true, time.UTC))
	assert.Equal(t, ListingUnscheduled, Classify(fest, now, false, time.UTC))

	assert.True(t, InProgramming(regular("2025-05-10", "2025-05-10"), now, time.UTC))
	assert.False(t, InProgramming(regular("2025-05-11", "2025-05-11"), now, time.UTC))
}
