package app

import (
	"context"
	"fmt"
	"time"

	"compliance_calendar/internal/domain/calendar"
)

// ShiftRequest moves the deadline day of one template's occurrences across clients.
type ShiftRequest struct {
	TemplateID     int64
	ClientIDs      []string
	NewDate        time.Time           // only its day-of-month is used
	NewTime        *calendar.TimeOfDay // overwrites the deadline time when set
	EffectiveFrom  time.Time
	EffectiveUntil *time.Time // defaults to December 31 of EffectiveFrom's year
}

// Validate rejects requests before anything is read or written.
func (r ShiftRequest) Validate() error {
	if r.TemplateID <= 0 {
		return calendar.NewValidationError("template_id", "must be positive")
	}
	if r.NewDate.IsZero() {
		return calendar.NewValidationError("new_date", "is required")
	}
	if r.EffectiveFrom.IsZero() {
		return calendar.NewValidationError("effective_from", "is required")
	}
	if r.EffectiveUntil != nil && calendar.DateOf(*r.EffectiveUntil).Before(calendar.DateOf(r.EffectiveFrom)) {
		return calendar.NewValidationError("effective_until", "is before effective_from")
	}
	return nil
}

// Window returns the inclusive deadline range the shift applies to.
func (r ShiftRequest) Window() (time.Time, time.Time) {
	from := calendar.DateOf(r.EffectiveFrom)
	until := calendar.EndOfYear(from.Year())
	if r.EffectiveUntil != nil {
		until = calendar.DateOf(*r.EffectiveUntil)
	}
	return from, until
}

// Shifter rewrites the day-of-month of existing occurrences.
type Shifter struct {
	occurrences calendar.OccurrenceStore
}

func NewShifter(occurrences calendar.OccurrenceStore) *Shifter {
	return &Shifter{occurrences: occurrences}
}

// Shift keeps each occurrence's own year and month, replaces the day with the
// requested one clamped to that month, then moves it off a weekend.
// It returns the number of occurrences touched.
func (s *Shifter) Shift(ctx context.Context, req ShiftRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if len(req.ClientIDs) == 0 {
		return 0, nil
	}
	from, until := req.Window()
	templateID := req.TemplateID
	matches, err := s.occurrences.Find(ctx, calendar.OccurrenceFilter{
		TemplateID:   &templateID,
		ClientIDs:    req.ClientIDs,
		DeadlineFrom: &from,
		DeadlineTo:   &until,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to select occurrences of template %d: %w", req.TemplateID, err)
	}

	day := req.NewDate.Day()
	updated := 0
	for _, o := range matches {
		if o.Deadline == nil {
			continue
		}
		deadline := calendar.DeadlineFor(o.Deadline.Year(), o.Deadline.Month(), day)
		patch := calendar.OccurrencePatch{Deadline: &deadline, DeadlineTime: req.NewTime}
		if err := s.occurrences.Update(ctx, o.ID, patch); err != nil {
			return updated, fmt.Errorf("failed to shift occurrence %d: %w", o.ID, err)
		}
		updated++
	}
	return updated, nil
}
