package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date, as stored in TIME columns.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

var (
	// EndOfDay is the default deadline time when none is recorded.
	EndOfDay = TimeOfDay{Hour: 23, Minute: 59, Second: 59}
	// StartOfDay is the default fulfillment time when none is recorded.
	StartOfDay = TimeOfDay{}
)

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS". Fractional seconds, as returned
// by Postgres for TIME columns, are ignored.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, NewValidationError("time", fmt.Sprintf("%q is not HH:MM[:SS]", s))
	}
	var vals [3]int
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		if len(p) != 2 {
			return TimeOfDay{}, NewValidationError("time", fmt.Sprintf("%q is not HH:MM[:SS]", s))
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return TimeOfDay{}, NewValidationError("time", fmt.Sprintf("%q is out of range", s))
		}
		vals[i] = n
	}
	return TimeOfDay{Hour: vals[0], Minute: vals[1], Second: vals[2]}, nil
}

// ParseOptionalTimeOfDay returns nil for an empty string.
func ParseOptionalTimeOfDay(s string) (*TimeOfDay, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// String formats as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On combines the time with the calendar date of d.
func (t TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, t.Second, 0, d.Location())
}
