// internal/app/temporality.go
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"compliance_calendar/internal/domain/calendar"
)

// GenerateRequest asks for one year of periods of a process for one client.
// StartDate is optional; generators that need one fall back to today.
type GenerateRequest struct {
	ClientID  string
	ProcessID int64
	StartDate *time.Time
}

// Generator expands a master process into the periods of one calendar year,
// persisting each period through the period store.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest, process *calendar.MasterProcess) ([]*calendar.Period, error)
}

// NewGenerator selects the generator for a temporality.
func NewGenerator(process *calendar.MasterProcess, periods calendar.PeriodStore, processes calendar.ProcessStore, now func() time.Time) (Generator, error) {
	switch process.Temporality {
	case calendar.TemporalityDaily:
		if process.Frequency < 1 {
			return nil, &calendar.ConfigurationError{ProcessID: process.ID, Reason: fmt.Sprintf("daily frequency must be at least 1 day, got %d", process.Frequency)}
		}
		return &windowGenerator{length: process.Frequency, periods: periods, now: now}, nil
	case calendar.TemporalityWeekly:
		return &windowGenerator{length: 7, periods: periods, now: now}, nil
	case calendar.TemporalityMonthly:
		return &monthlyGenerator{periods: periods, processes: processes, now: now}, nil
	default:
		return nil, &calendar.ConfigurationError{ProcessID: process.ID, Reason: fmt.Sprintf("unknown temporality %q", process.Temporality)}
	}
}

// windowGenerator emits consecutive fixed-length windows starting on the
// requested date, for as long as a window starts inside the start year.
// The last window may end in the following year.
type windowGenerator struct {
	length  int
	periods calendar.PeriodStore
	now     func() time.Time
}

func (g *windowGenerator) Generate(ctx context.Context, req GenerateRequest, process *calendar.MasterProcess) ([]*calendar.Period, error) {
	start := calendar.DateOf(g.now())
	if req.StartDate != nil {
		start = calendar.DateOf(*req.StartDate)
	}
	year := start.Year()

	created := make([]*calendar.Period, 0)
	var previousID *int64
	for current := start; current.Year() == year; current = current.AddDate(0, 0, g.length) {
		end := current.AddDate(0, 0, g.length-1)
		p := &calendar.Period{
			ClientID:   req.ClientID,
			ProcessID:  process.ID,
			StartDate:  current,
			EndDate:    &end,
			Month:      int(current.Month()),
			Year:       year,
			PreviousID: previousID,
			Active:     true,
		}
		if err := g.periods.Save(ctx, p); err != nil {
			return created, fmt.Errorf("failed to save period starting %s: %w", current.Format(calendar.DateLayout), err)
		}
		created = append(created, p)
		id := p.ID
		previousID = &id
	}
	return created, nil
}

// monthlyGenerator emits one period per month from an anchor month through December.
type monthlyGenerator struct {
	periods   calendar.PeriodStore
	processes calendar.ProcessStore
	now       func() time.Time
}

func (g *monthlyGenerator) Generate(ctx context.Context, req GenerateRequest, process *calendar.MasterProcess) ([]*calendar.Period, error) {
	templates, err := g.processes.ListMilestoneTemplates(ctx, process.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestone templates for process %d: %w", process.ID, err)
	}
	if len(templates) == 0 {
		return nil, &calendar.ConfigurationError{ProcessID: process.ID, Reason: "no milestone templates to anchor a monthly calendar"}
	}
	SortTemplates(templates)
	first := templates[0]

	anchorDay := first.ReferenceDay()
	switch {
	case process.StartsOnDay1:
		anchorDay = 1
	case req.StartDate != nil:
		anchorDay = req.StartDate.Day()
	}

	year, month := g.now().Year(), time.January
	switch {
	case req.StartDate != nil:
		year, month = req.StartDate.Year(), req.StartDate.Month()
	case first.ReferenceDate != nil:
		year, month = first.ReferenceDate.Year(), first.ReferenceDate.Month()
	}

	created := make([]*calendar.Period, 0, 13-int(month))
	var previousID *int64
	for m := month; m <= time.December; m++ {
		start := calendar.ClampToMonth(year, m, anchorDay)
		end := calendar.Date(year, m, calendar.DaysIn(year, m))
		if m == time.December {
			end = calendar.EndOfYear(year)
		}
		p := &calendar.Period{
			ClientID:   req.ClientID,
			ProcessID:  process.ID,
			StartDate:  start,
			EndDate:    &end,
			Month:      int(m),
			Year:       year,
			PreviousID: previousID,
			Active:     true,
		}
		if err := g.periods.Save(ctx, p); err != nil {
			return created, fmt.Errorf("failed to save period %d-%02d: %w", year, m, err)
		}
		created = append(created, p)
		id := p.ID
		previousID = &id
	}
	return created, nil
}

// SortTemplates orders templates by reference date; templates without one go
// last. Ties keep ID order.
func SortTemplates(templates []*calendar.MilestoneTemplate) {
	sort.SliceStable(templates, func(i, j int) bool {
		a, b := templates[i], templates[j]
		switch {
		case a.ReferenceDate == nil && b.ReferenceDate == nil:
			return a.ID < b.ID
		case a.ReferenceDate == nil:
			return false
		case b.ReferenceDate == nil:
			return true
		case !a.ReferenceDate.Equal(*b.ReferenceDate):
			return a.ReferenceDate.Before(*b.ReferenceDate)
		}
		return a.ID < b.ID
	})
}
