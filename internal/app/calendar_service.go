// internal/app/calendar_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"compliance_calendar/internal/domain/calendar"

	"github.com/sirupsen/logrus"
)

// GenerateResult summarises a calendar generation run.
type GenerateResult struct {
	Message     string `json:"message"`
	Count       int    `json:"count"`
	Year        int    `json:"year"`
	Occurrences int    `json:"occurrences"`
}

// CalendarService exposes the calendar operations. Every operation runs in
// one transaction, so a failure leaves nothing half-written.
type CalendarService struct {
	tx     calendar.Transactor
	logger *logrus.Entry
	now    func() time.Time
}

func NewCalendarService(tx calendar.Transactor, logger *logrus.Entry, now func() time.Time) *CalendarService {
	if now == nil {
		now = time.Now
	}
	return &CalendarService{tx: tx, logger: logger, now: now}
}

// GenerateCalendar expands the master process into one year of periods for
// the client and dates every milestone inside them.
func (s *CalendarService) GenerateCalendar(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.ClientID == "" {
		return nil, calendar.NewValidationError("client_id", "is required")
	}
	if req.ProcessID <= 0 {
		return nil, calendar.NewValidationError("process_id", "must be positive")
	}
	logCtx := s.logger.WithFields(logrus.Fields{"client_id": req.ClientID, "process_id": req.ProcessID})

	var result *GenerateResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
		process, err := st.Processes.GetByID(ctx, req.ProcessID)
		if err != nil {
			return fmt.Errorf("failed to load process %d: %w", req.ProcessID, err)
		}
		templates, err := st.Processes.ListMilestoneTemplates(ctx, process.ID)
		if err != nil {
			return fmt.Errorf("failed to list milestone templates for process %d: %w", process.ID, err)
		}
		if len(templates) == 0 {
			return &calendar.ConfigurationError{ProcessID: process.ID, Reason: "process has no milestone templates"}
		}
		SortTemplates(templates)

		existing, err := st.Periods.ListByClientAndProcess(ctx, req.ClientID, req.ProcessID)
		if err != nil {
			return fmt.Errorf("failed to list existing periods: %w", err)
		}

		generator, err := NewGenerator(process, st.Periods, st.Processes, s.now)
		if err != nil {
			return err
		}
		periods, err := generator.Generate(ctx, req, process)
		if err != nil {
			return err
		}
		if err := checkOverlap(existing, periods); err != nil {
			return err
		}

		created, err := NewExpander(st.Occurrences, s.now).Expand(ctx, req, periods, templates)
		if err != nil {
			return err
		}

		year := s.startDate(req).Year()
		if len(periods) > 0 {
			year = periods[0].Year
		}
		result = &GenerateResult{
			Message:     "client calendar generated",
			Count:       len(periods),
			Year:        year,
			Occurrences: created,
		}
		return nil
	})
	if err != nil {
		logCtx.WithError(err).Error("Calendar generation failed")
		return nil, err
	}
	logCtx.WithFields(logrus.Fields{"periods": result.Count, "occurrences": result.Occurrences, "year": result.Year}).Info("Calendar generated")
	return result, nil
}

func (s *CalendarService) startDate(req GenerateRequest) time.Time {
	if req.StartDate != nil {
		return calendar.DateOf(*req.StartDate)
	}
	return calendar.DateOf(s.now())
}

// checkOverlap refuses a generated calendar whose year, from its first period
// through December 31, intersects periods the client already had for the
// process. The transaction discards the generated periods on refusal.
func checkOverlap(existing, generated []*calendar.Period) error {
	if len(generated) == 0 {
		return nil
	}
	start := generated[0].StartDate
	end := calendar.EndOfYear(generated[0].Year)

	for _, p := range existing {
		if p.StartDate.After(end) {
			continue
		}
		if p.EndDate != nil && p.EndDate.Before(start) {
			continue
		}
		pEnd := "open"
		if p.EndDate != nil {
			pEnd = p.EndDate.Format(calendar.DateLayout)
		}
		return fmt.Errorf("%w: period %d (%s - %s)", calendar.ErrOverlappingCalendar, p.ID, p.StartDate.Format(calendar.DateLayout), pEnd)
	}
	return nil
}

// ShiftDatesBulk moves the deadline day of a template's occurrences for the given clients.
func (s *CalendarService) ShiftDatesBulk(ctx context.Context, req ShiftRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	var updated int
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
		n, err := NewShifter(st.Occurrences).Shift(ctx, req)
		updated = n
		return err
	})
	logCtx := s.logger.WithFields(logrus.Fields{"template_id": req.TemplateID, "clients": len(req.ClientIDs), "new_day": req.NewDate.Day()})
	if err != nil {
		logCtx.WithError(err).Error("Bulk date shift failed")
		return 0, err
	}
	logCtx.WithField("updated", updated).Info("Bulk date shift applied")
	return updated, nil
}

// DisableFromDate deactivates a template's occurrences from a date on and
// cascades to the periods left empty. clientID may be empty for all clients.
func (s *CalendarService) DisableFromDate(ctx context.Context, templateID int64, from time.Time, clientID string) (DisableSummary, error) {
	if templateID <= 0 {
		return DisableSummary{}, calendar.NewValidationError("template_id", "must be positive")
	}
	if from.IsZero() {
		return DisableSummary{}, calendar.NewValidationError("from_date", "is required")
	}
	var summary DisableSummary
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
		res, err := NewLifecycle(st.Periods, st.Occurrences).DisableFromDate(ctx, templateID, from, clientID)
		summary = res
		return err
	})
	logCtx := s.logger.WithFields(logrus.Fields{"template_id": templateID, "from": from.Format(calendar.DateLayout), "client_id": clientID})
	if err != nil {
		logCtx.WithError(err).Error("Disable from date failed")
		return DisableSummary{}, err
	}
	logCtx.WithFields(logrus.Fields{
		"occurrences_disabled": summary.OccurrencesDisabled,
		"periods_disabled":     len(summary.PeriodsDisabled),
	}).Info("Occurrences disabled")
	return summary, nil
}

// SynchronizePeriod re-establishes a period's active flag.
func (s *CalendarService) SynchronizePeriod(ctx context.Context, periodID int64) (SyncSummary, error) {
	var summary SyncSummary
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
		res, err := NewLifecycle(st.Periods, st.Occurrences).Synchronize(ctx, periodID)
		summary = res
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("period_id", periodID).Error("Period synchronization failed")
		return SyncSummary{}, err
	}
	if summary.Changed {
		s.logger.WithFields(logrus.Fields{"period_id": periodID, "active": summary.Current}).Info("Period active flag changed")
	}
	return summary, nil
}

// SetOccurrenceActive toggles one occurrence and cascades to its period.
func (s *CalendarService) SetOccurrenceActive(ctx context.Context, occurrenceID int64, active bool) (SyncSummary, error) {
	var summary SyncSummary
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
		res, err := NewLifecycle(st.Periods, st.Occurrences).SetOccurrenceActive(ctx, occurrenceID, active)
		summary = res
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("occurrence_id", occurrenceID).Error("Occurrence toggle failed")
		return SyncSummary{}, err
	}
	s.logger.WithFields(logrus.Fields{"occurrence_id": occurrenceID, "active": active, "period_active": summary.Current}).Info("Occurrence toggled")
	return summary, nil
}
