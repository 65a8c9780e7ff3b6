package common

import (
	"fmt"
	"time"
)

// DayFormat is the calendar-day layout used across the pipeline.
const DayFormat = "2006-01-02"

// ParseDay parses a YYYY-MM-DD date into a UTC midnight timestamp.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

// DaysBetween returns every calendar day from start to end inclusive.
// An end before start yields an empty slice.
func DaysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
