// Package compliance derives the displayed compliance status of a milestone
// occurrence. It is the only implementation of the rule set: listings,
// exports, reminders and the CLI all call Compute.
package compliance

import (
	"time"

	"compliance_calendar/internal/domain/calendar"
)

// Status is the display status of an occurrence. A non-finalized occurrence
// without a deadline passes its base state through unchanged.
type Status string

const (
	StatusFinalized       Status = "Finalized"
	StatusCompletedOnTime Status = "CompletedOnTime"
	StatusCompletedLate   Status = "CompletedLate"
	StatusDueToday        Status = "DueToday"
	StatusPendingOnTime   Status = "PendingOnTime"
	StatusPendingLate     Status = "PendingLate"
)

// Input carries everything the status depends on besides the as-of time.
type Input struct {
	BaseState       calendar.BaseState
	Deadline        *time.Time
	DeadlineTime    *calendar.TimeOfDay
	FulfillmentDate *time.Time
	FulfillmentTime *calendar.TimeOfDay
}

// Compute returns the status of in as seen on the calendar date of asOf.
//
// A finalized occurrence without a fulfillment record is reported as
// Finalized, never as late.
func Compute(in Input, asOf time.Time) Status {
	if in.BaseState == calendar.StateFinalized {
		if in.FulfillmentDate == nil || in.Deadline == nil {
			return StatusFinalized
		}
		deadlineTime := calendar.EndOfDay
		if in.DeadlineTime != nil {
			deadlineTime = *in.DeadlineTime
		}
		fulfillmentTime := calendar.StartOfDay
		if in.FulfillmentTime != nil {
			fulfillmentTime = *in.FulfillmentTime
		}
		deadline := deadlineTime.On(calendar.DateOf(*in.Deadline))
		fulfilled := fulfillmentTime.On(calendar.DateOf(*in.FulfillmentDate))
		if fulfilled.After(deadline) {
			return StatusCompletedLate
		}
		return StatusCompletedOnTime
	}

	if in.Deadline == nil {
		return Status(in.BaseState)
	}
	deadline := calendar.DateOf(*in.Deadline)
	today := calendar.DateOf(asOf)
	switch {
	case deadline.Equal(today):
		return StatusDueToday
	case deadline.Before(today):
		return StatusPendingLate
	default:
		return StatusPendingOnTime
	}
}

// ForOccurrence builds the input from an occurrence and its latest fulfillment,
// which may be nil.
func ForOccurrence(o *calendar.Occurrence, latest *calendar.FulfillmentRecord) Input {
	in := Input{
		BaseState:    o.State,
		Deadline:     o.Deadline,
		DeadlineTime: o.DeadlineTime,
	}
	if latest != nil {
		d := latest.Date
		in.FulfillmentDate = &d
		in.FulfillmentTime = latest.Time
	}
	return in
}

// Known reports whether s is one of the computed statuses.
func Known(s Status) bool {
	switch s {
	case StatusFinalized, StatusCompletedOnTime, StatusCompletedLate,
		StatusDueToday, StatusPendingOnTime, StatusPendingLate:
		return true
	}
	return false
}

// IsOpen reports whether s still requires action.
func IsOpen(s Status) bool {
	return s == StatusDueToday || s == StatusPendingOnTime || s == StatusPendingLate
}
