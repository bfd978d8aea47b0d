package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/domain/compliance"

	"github.com/sirupsen/logrus"
)

// Period-level states shown in exports.
const (
	PeriodFinalized  = "Finalized"
	PeriodInProgress = "InProgress"
)

// ReportFilter narrows a status report. Zero-valued fields do not constrain.
type ReportFilter struct {
	ClientID     string
	TemplateID   int64
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
	Statuses     []compliance.Status
}

// ReportRow is one active occurrence with everything needed to display it.
type ReportRow struct {
	OccurrenceID    int64               `json:"occurrence_id"`
	PeriodID        int64               `json:"period_id"`
	ClientID        string              `json:"client_id"`
	ProcessID       int64               `json:"process_id"`
	ProcessName     string              `json:"process_name"`
	TemplateID      int64               `json:"template_id"`
	TemplateName    string              `json:"template_name"`
	Category        string              `json:"category,omitempty"`
	Critical        bool                `json:"critical"`
	PeriodStart     time.Time           `json:"period_start"`
	PeriodEnd       *time.Time          `json:"period_end,omitempty"`
	PeriodState     string              `json:"period_state"`
	Deadline        *time.Time          `json:"deadline,omitempty"`
	DeadlineTime    *calendar.TimeOfDay `json:"-"`
	BaseState       calendar.BaseState  `json:"base_state"`
	Status          compliance.Status   `json:"status"`
	FulfillmentDate *time.Time          `json:"fulfillment_date,omitempty"`
	FulfillmentTime *calendar.TimeOfDay `json:"-"`
	FulfilledBy     string              `json:"fulfilled_by,omitempty"`
}

// StatusService builds status listings. It is the read side shared by the
// HTTP listing, the CSV exports, the reminder job and the bot.
type StatusService struct {
	tx     calendar.Transactor
	logger *logrus.Entry
}

func NewStatusService(tx calendar.Transactor, logger *logrus.Entry) *StatusService {
	return &StatusService{tx: tx, logger: logger}
}

// Compute is compliance.Compute for transports that only hold a service.
func (s *StatusService) Compute(in compliance.Input, asOf time.Time) compliance.Status {
	return compliance.Compute(in, asOf)
}

// Report lists the active occurrences matching f with their status as of asOf.
func (s *StatusService) Report(ctx context.Context, f ReportFilter, asOf time.Time) ([]ReportRow, error) {
	rows := make([]ReportRow, 0)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
		filter := calendar.OccurrenceFilter{ActiveOnly: true, DeadlineFrom: f.DeadlineFrom, DeadlineTo: f.DeadlineTo}
		if f.ClientID != "" {
			filter.ClientIDs = []string{f.ClientID}
		}
		if f.TemplateID > 0 {
			templateID := f.TemplateID
			filter.TemplateID = &templateID
		}
		occurrences, err := st.Occurrences.Find(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to find occurrences: %w", err)
		}

		lk := newLookup(st)
		for _, o := range occurrences {
			row, err := lk.row(ctx, o, asOf)
			if err != nil {
				return err
			}
			if len(f.Statuses) > 0 && !hasStatus(f.Statuses, row.Status) {
				continue
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Status report failed")
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"client_id": f.ClientID, "rows": len(rows)}).Debug("Status report built")
	return rows, nil
}

// lookup memoizes the parents of the occurrences in one report.
type lookup struct {
	st           calendar.Stores
	periods      map[int64]*calendar.Period
	periodStates map[int64]string
	templates    map[int64]*calendar.MilestoneTemplate
	processes    map[int64]*calendar.MasterProcess
}

func newLookup(st calendar.Stores) *lookup {
	return &lookup{
		st:           st,
		periods:      make(map[int64]*calendar.Period),
		periodStates: make(map[int64]string),
		templates:    make(map[int64]*calendar.MilestoneTemplate),
		processes:    make(map[int64]*calendar.MasterProcess),
	}
}

func (l *lookup) row(ctx context.Context, o *calendar.Occurrence, asOf time.Time) (ReportRow, error) {
	p, err := l.period(ctx, o.PeriodID)
	if err != nil {
		return ReportRow{}, err
	}
	t, err := l.template(ctx, o.TemplateID)
	if err != nil {
		return ReportRow{}, err
	}
	mp, err := l.process(ctx, p.ProcessID)
	if err != nil {
		return ReportRow{}, err
	}
	periodState, err := l.periodState(ctx, p.ID)
	if err != nil {
		return ReportRow{}, err
	}

	latest, err := l.st.Fulfillments.LatestByOccurrence(ctx, o.ID)
	if err != nil && !errors.Is(err, calendar.ErrNotFound) {
		return ReportRow{}, fmt.Errorf("failed to load fulfillment of occurrence %d: %w", o.ID, err)
	}
	if err != nil {
		latest = nil
	}

	row := ReportRow{
		OccurrenceID: o.ID,
		PeriodID:     p.ID,
		ClientID:     p.ClientID,
		ProcessID:    mp.ID,
		ProcessName:  mp.Name,
		TemplateID:   t.ID,
		TemplateName: t.Name,
		Category:     o.Category,
		Critical:     t.Critical,
		PeriodStart:  p.StartDate,
		PeriodEnd:    p.EndDate,
		PeriodState:  periodState,
		Deadline:     o.Deadline,
		DeadlineTime: o.DeadlineTime,
		BaseState:    o.State,
		Status:       compliance.Compute(compliance.ForOccurrence(o, latest), asOf),
	}
	if latest != nil {
		d := latest.Date
		row.FulfillmentDate = &d
		row.FulfillmentTime = latest.Time
		row.FulfilledBy = latest.Author
	}
	return row, nil
}

func (l *lookup) period(ctx context.Context, id int64) (*calendar.Period, error) {
	if p, ok := l.periods[id]; ok {
		return p, nil
	}
	p, err := l.st.Periods.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load period %d: %w", id, err)
	}
	l.periods[id] = p
	return p, nil
}

func (l *lookup) template(ctx context.Context, id int64) (*calendar.MilestoneTemplate, error) {
	if t, ok := l.templates[id]; ok {
		return t, nil
	}
	t, err := l.st.Processes.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %d: %w", id, err)
	}
	l.templates[id] = t
	return t, nil
}

func (l *lookup) process(ctx context.Context, id int64) (*calendar.MasterProcess, error) {
	if mp, ok := l.processes[id]; ok {
		return mp, nil
	}
	mp, err := l.st.Processes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load process %d: %w", id, err)
	}
	l.processes[id] = mp
	return mp, nil
}

// periodState is Finalized when every active occurrence of the period is.
func (l *lookup) periodState(ctx context.Context, periodID int64) (string, error) {
	if s, ok := l.periodStates[periodID]; ok {
		return s, nil
	}
	id := periodID
	occurrences, err := l.st.Occurrences.Find(ctx, calendar.OccurrenceFilter{PeriodID: &id, ActiveOnly: true})
	if err != nil {
		return "", fmt.Errorf("failed to load occurrences of period %d: %w", periodID, err)
	}
	state := PeriodFinalized
	if len(occurrences) == 0 {
		state = PeriodInProgress
	}
	for _, o := range occurrences {
		if o.State != calendar.StateFinalized {
			state = PeriodInProgress
			break
		}
	}
	l.periodStates[periodID] = state
	return state, nil
}

func hasStatus(statuses []compliance.Status, s compliance.Status) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}
