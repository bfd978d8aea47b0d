package app

import (
	"context"
	"fmt"
	"time"

	"compliance_calendar/internal/domain/calendar"
)

// DisableSummary reports the effect of DisableFromDate.
type DisableSummary struct {
	OccurrencesDisabled int                  `json:"occurrences_disabled"`
	PeriodsDisabled     []calendar.PeriodRef `json:"periods_disabled"`
}

// SyncSummary reports the effect of Synchronize.
type SyncSummary struct {
	PeriodID    int64 `json:"period_id"`
	Changed     bool  `json:"changed"`
	Previous    bool  `json:"previous"`
	Current     bool  `json:"current"`
	ActiveCount int   `json:"active_count"`
}

// Lifecycle keeps a period active exactly when at least one of its
// occurrences is active. Every occurrence toggle goes through it.
// Callers run it in the same transaction as the occurrence writes.
type Lifecycle struct {
	periods     calendar.PeriodStore
	occurrences calendar.OccurrenceStore
}

func NewLifecycle(periods calendar.PeriodStore, occurrences calendar.OccurrenceStore) *Lifecycle {
	return &Lifecycle{periods: periods, occurrences: occurrences}
}

// DisableFromDate deactivates every active occurrence of the template with a
// deadline on or after from, optionally for one client only, and deactivates
// the periods left without active occurrences.
func (l *Lifecycle) DisableFromDate(ctx context.Context, templateID int64, from time.Time, clientID string) (DisableSummary, error) {
	summary := DisableSummary{PeriodsDisabled: make([]calendar.PeriodRef, 0)}

	fromDate := calendar.DateOf(from)
	filter := calendar.OccurrenceFilter{TemplateID: &templateID, DeadlineFrom: &fromDate, ActiveOnly: true}
	if clientID != "" {
		filter.ClientIDs = []string{clientID}
	}
	matches, err := l.occurrences.Find(ctx, filter)
	if err != nil {
		return summary, fmt.Errorf("failed to select occurrences of template %d: %w", templateID, err)
	}

	inactive := false
	touched := make([]int64, 0)
	seen := make(map[int64]bool)
	for _, o := range matches {
		if err := l.occurrences.Update(ctx, o.ID, calendar.OccurrencePatch{Active: &inactive}); err != nil {
			return summary, fmt.Errorf("failed to disable occurrence %d: %w", o.ID, err)
		}
		summary.OccurrencesDisabled++
		if !seen[o.PeriodID] {
			seen[o.PeriodID] = true
			touched = append(touched, o.PeriodID)
		}
	}

	for _, periodID := range touched {
		res, err := l.Synchronize(ctx, periodID)
		if err != nil {
			return summary, err
		}
		if res.Changed && !res.Current {
			p, err := l.periods.GetByID(ctx, periodID)
			if err != nil {
				return summary, fmt.Errorf("failed to reload period %d: %w", periodID, err)
			}
			summary.PeriodsDisabled = append(summary.PeriodsDisabled, calendar.PeriodRef{ID: p.ID, ClientID: p.ClientID, ProcessID: p.ProcessID})
		}
	}
	return summary, nil
}

// Synchronize recomputes the period's active flag from its occurrences and
// writes it only when it changes. It is idempotent.
func (l *Lifecycle) Synchronize(ctx context.Context, periodID int64) (SyncSummary, error) {
	p, err := l.periods.GetByID(ctx, periodID)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("failed to load period %d: %w", periodID, err)
	}
	count, err := l.occurrences.CountActiveByPeriod(ctx, periodID)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("failed to count active occurrences of period %d: %w", periodID, err)
	}

	summary := SyncSummary{PeriodID: periodID, Previous: p.Active, Current: count > 0, ActiveCount: count}
	if summary.Previous == summary.Current {
		return summary, nil
	}
	if err := l.periods.SetActive(ctx, periodID, summary.Current); err != nil {
		return summary, fmt.Errorf("failed to update period %d: %w", periodID, err)
	}
	summary.Changed = true
	return summary, nil
}

// SetOccurrenceActive toggles one occurrence and re-establishes its period's flag.
func (l *Lifecycle) SetOccurrenceActive(ctx context.Context, occurrenceID int64, active bool) (SyncSummary, error) {
	o, err := l.occurrences.GetByID(ctx, occurrenceID)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("failed to load occurrence %d: %w", occurrenceID, err)
	}
	if o.Active != active {
		if err := l.occurrences.Update(ctx, occurrenceID, calendar.OccurrencePatch{Active: &active}); err != nil {
			return SyncSummary{}, fmt.Errorf("failed to update occurrence %d: %w", occurrenceID, err)
		}
	}
	return l.Synchronize(ctx, o.PeriodID)
}
