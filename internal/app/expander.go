package app

import (
	"context"
	"fmt"
	"time"

	"compliance_calendar/internal/domain/calendar"
)

// Expander creates one milestone occurrence per (period, template).
type Expander struct {
	occurrences calendar.OccurrenceStore
	now         func() time.Time
}

func NewExpander(occurrences calendar.OccurrenceStore, now func() time.Time) *Expander {
	return &Expander{occurrences: occurrences, now: now}
}

// Expand dates each template inside each period and saves the occurrences one
// by one. periods must be in generation order: the first one is the only
// period whose deadlines are pulled forward to the requested start date.
func (e *Expander) Expand(ctx context.Context, req GenerateRequest, periods []*calendar.Period, templates []*calendar.MilestoneTemplate) (int, error) {
	statusChangedAt := e.now()
	created := 0
	for i, p := range periods {
		for _, t := range templates {
			deadline := e.deadline(req, i == 0, p, t)
			o := &calendar.Occurrence{
				PeriodID:        p.ID,
				TemplateID:      t.ID,
				State:           calendar.StateNew,
				Deadline:        &deadline,
				DeadlineTime:    t.DeadlineTime,
				StatusChangedAt: statusChangedAt,
				Category:        t.Category,
				Active:          true,
			}
			if err := e.occurrences.Save(ctx, o); err != nil {
				return created, fmt.Errorf("failed to save occurrence of template %d in period %d: %w", t.ID, p.ID, err)
			}
			created++
		}
	}
	return created, nil
}

func (e *Expander) deadline(req GenerateRequest, firstPeriod bool, p *calendar.Period, t *calendar.MilestoneTemplate) time.Time {
	year, month := p.ReferenceMonth()
	day := t.ReferenceDay()
	if firstPeriod && req.StartDate != nil {
		start := calendar.DateOf(*req.StartDate)
		if calendar.ClampToMonth(year, month, day).Before(start) {
			day = start.Day()
		}
	}
	return calendar.DeadlineFor(year, month, day)
}
