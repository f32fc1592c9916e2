package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinepiu-booking/internal/apperr"
)

// MaxRuntimeMin is the longest runtime a movie may have. Placement reads
// the room timeline back this far, so it bounds how long any screening can
// keep a room busy.
const MaxRuntimeMin = 600

// Movie is a film that can be scheduled in a room.
//
// Fields:
//
//	ReleaseDate      – nominal (national) release day.
//	LocalRelease     – day the cinema may first screen it, never before ReleaseDate.
//	ProgrammingStart – day it becomes publicly listed and bookable, never after LocalRelease.
//	Festival         – listed in the festival section instead of regular programming.
type Movie struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Director         string    `json:"director,omitempty"`
	Genre            string    `json:"genre,omitempty"`
	Description      string    `json:"description,omitempty"`
	RuntimeMin       int       `json:"runtime_min"`
	ReleaseDate      time.Time `json:"release_date"`
	LocalRelease     time.Time `json:"local_release"`
	ProgrammingStart time.Time `json:"programming_start"`
	Festival         bool      `json:"festival"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

// MovieInput carries user-supplied movie fields. Nil dates are defaulted.
type MovieInput struct {
	Title            string
	Director         string
	Genre            string
	Description      string
	RuntimeMin       int
	ReleaseDate      time.Time
	LocalRelease     *time.Time
	ProgrammingStart *time.Time
	Festival         bool
}

// NewMovie builds a movie from input. A missing local release defaults to the
// release date and a missing programming start to the local release; the
// resulting values are stored as given and never recomputed.
func NewMovie(in MovieInput) (Movie, error) {
	m := Movie{
		Title:       strings.TrimSpace(in.Title),
		Director:    strings.TrimSpace(in.Director),
		Genre:       strings.TrimSpace(in.Genre),
		Description: strings.TrimSpace(in.Description),
		RuntimeMin:  in.RuntimeMin,
		ReleaseDate: truncateDay(in.ReleaseDate),
		Festival:    in.Festival,
	}
	m.LocalRelease = m.ReleaseDate
	if in.LocalRelease != nil {
		m.LocalRelease = truncateDay(*in.LocalRelease)
	}
	m.ProgrammingStart = m.LocalRelease
	if in.ProgrammingStart != nil {
		m.ProgrammingStart = truncateDay(*in.ProgrammingStart)
	}
	if err := m.Validate(); err != nil {
		return Movie{}, err
	}
	return m, nil
}

// Revise applies an edit to an existing movie. Dates left nil keep their
// stored value.
func (m Movie) Revise(in MovieInput) (Movie, error) {
	out := m
	out.Title = strings.TrimSpace(in.Title)
	out.Director = strings.TrimSpace(in.Director)
	out.Genre = strings.TrimSpace(in.Genre)
	out.Description = strings.TrimSpace(in.Description)
	out.RuntimeMin = in.RuntimeMin
	out.Festival = in.Festival
	if !in.ReleaseDate.IsZero() {
		out.ReleaseDate = truncateDay(in.ReleaseDate)
	}
	if in.LocalRelease != nil {
		out.LocalRelease = truncateDay(*in.LocalRelease)
	}
	if in.ProgrammingStart != nil {
		out.ProgrammingStart = truncateDay(*in.ProgrammingStart)
	}
	if err := out.Validate(); err != nil {
		return Movie{}, err
	}
	return out, nil
}

// Validate checks the field and date-ordering invariants.
func (m Movie) Validate() error {
	switch {
	case m.Title == "":
		return apperr.Validation("title", apperr.ReasonInvalidInput, "title is required")
	case m.RuntimeMin <= 0:
		return apperr.Validation("runtime_min", apperr.ReasonInvalidInput, "runtime must be a positive number of minutes")
	case m.RuntimeMin > MaxRuntimeMin:
		return apperr.Validation("runtime_min", apperr.ReasonInvalidInput,
			fmt.Sprintf("runtime cannot exceed %d minutes", MaxRuntimeMin))
	case m.ReleaseDate.IsZero():
		return apperr.Validation("release_date", apperr.ReasonInvalidInput, "release date is required")
	case m.LocalRelease.Before(m.ReleaseDate):
		return apperr.Validation("local_release", apperr.ReasonInvalidInput, "local release cannot precede the release date")
	case m.ProgrammingStart.After(m.LocalRelease):
		return apperr.Validation("programming_start", apperr.ReasonInvalidInput, "programming start cannot follow the local release")
	}
	return nil
}

// Runtime returns the running time as a duration.
func (m Movie) Runtime() time.Duration { return time.Duration(m.RuntimeMin) * time.Minute }

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
