// Package schedule holds the pure scheduling rules of the cinema: the
// occupied interval of a showtime, how movies are classified for listing and
// where a showtime may be placed in a room.
package schedule

import "time"

// Buffer is the cleaning time appended after every screening.
const Buffer = 15 * time.Minute

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// OccupiedInterval is the span a showtime blocks its room for: the runtime
// plus the cleaning buffer.
func OccupiedInterval(runtime time.Duration, start time.Time) Interval {
	return Interval{Start: start, End: start.Add(runtime + Buffer)}
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching intervals (one ends exactly when the other starts) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether t falls in [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}
