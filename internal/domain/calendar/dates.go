package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 date format used on every wire surface.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date at midnight UTC. All dates in the
// engine are local calendar dates; UTC is only the carrier location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date. Out-of-range days normalise like time.Date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// EndOfYear returns December 31 of year.
func EndOfYear(year int) time.Time {
	return Date(year, time.December, 31)
}

// ClampToMonth returns the given day of the month, or the month's last day
// when day does not exist in it. Callers guarantee month is within 1..12.
func ClampToMonth(year int, month time.Month, day int) time.Time {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return Date(year, month, day)
}

// ShiftOffWeekend moves a Saturday back one day and a Sunday back two, so the
// result is always the preceding Friday. Weekdays are returned unchanged.
// It applies to deadlines only, never to period boundaries.
func ShiftOffWeekend(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, -2)
	default:
		return d
	}
}

// DeadlineFor clamps day into year/month and moves it off a weekend.
func DeadlineFor(year int, month time.Month, day int) time.Time {
	return ShiftOffWeekend(ClampToMonth(year, month, day))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewValidationError(field, fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return t, nil
}

// ParseOptionalDate returns nil for an empty string.
func ParseOptionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
