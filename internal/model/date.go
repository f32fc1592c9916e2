package model

import "time"

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// DateOf returns the calendar day of t as seen in loc, stamped at midnight UTC
// so that days compare with Before/After/Equal regardless of zone.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a midnight UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
