package httpapi

import (
	"errors"
	"time"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/domain/compliance"
)

type generateReq struct {
	ClientID  string `json:"client_id"`
	ProcessID int64  `json:"process_id"`
	StartDate string `json:"start_date"`
}

func (r generateReq) toRequest() (app.GenerateRequest, error) {
	start, err := calendar.ParseOptionalDate("start_date", r.StartDate)
	if err != nil {
		return app.GenerateRequest{}, err
	}
	return app.GenerateRequest{ClientID: r.ClientID, ProcessID: r.ProcessID, StartDate: start}, nil
}

type shiftReq struct {
	TemplateID     int64    `json:"template_id"`
	ClientIDs      []string `json:"client_ids"`
	NewDate        string   `json:"new_date"`
	NewTime        string   `json:"new_time"`
	EffectiveFrom  string   `json:"effective_from"`
	EffectiveUntil string   `json:"effective_until"`
}

func (r shiftReq) toRequest() (app.ShiftRequest, error) {
	newDate, err := calendar.ParseDate("new_date", r.NewDate)
	if err != nil {
		return app.ShiftRequest{}, err
	}
	newTime, err := parseTimeField("new_time", r.NewTime)
	if err != nil {
		return app.ShiftRequest{}, err
	}
	from, err := calendar.ParseDate("effective_from", r.EffectiveFrom)
	if err != nil {
		return app.ShiftRequest{}, err
	}
	until, err := calendar.ParseOptionalDate("effective_until", r.EffectiveUntil)
	if err != nil {
		return app.ShiftRequest{}, err
	}
	return app.ShiftRequest{
		TemplateID:     r.TemplateID,
		ClientIDs:      r.ClientIDs,
		NewDate:        newDate,
		NewTime:        newTime,
		EffectiveFrom:  from,
		EffectiveUntil: until,
	}, nil
}

type disableReq struct {
	TemplateID int64  `json:"template_id"`
	FromDate   string `json:"from_date"`
	ClientID   string `json:"client_id"`
}

type activeReq struct {
	Active *bool `json:"active"`
}

type fulfillReq struct {
	OccurrenceIDs []int64 `json:"occurrence_ids"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	Author        string  `json:"author"`
	Observation   string  `json:"observation"`
}

func (r fulfillReq) toRequest() (app.FulfillRequest, error) {
	date, err := calendar.ParseDate("date", r.Date)
	if err != nil {
		return app.FulfillRequest{}, err
	}
	tod, err := parseTimeField("time", r.Time)
	if err != nil {
		return app.FulfillRequest{}, err
	}
	return app.FulfillRequest{
		OccurrenceIDs: r.OccurrenceIDs,
		Date:          date,
		Time:          tod,
		Author:        r.Author,
		Observation:   r.Observation,
	}, nil
}

// parseTimeField parses an optional HH:MM[:SS] value reported under field.
func parseTimeField(field, s string) (*calendar.TimeOfDay, error) {
	t, err := calendar.ParseOptionalTimeOfDay(s)
	var verr *calendar.ValidationError
	if errors.As(err, &verr) {
		return nil, calendar.NewValidationError(field, verr.Reason)
	}
	return t, err
}

// rowView is the wire shape of a report row: dates as YYYY-MM-DD, times as HH:MM:SS.
type rowView struct {
	OccurrenceID    int64              `json:"occurrence_id"`
	PeriodID        int64              `json:"period_id"`
	ClientID        string             `json:"client_id"`
	ProcessID       int64              `json:"process_id"`
	ProcessName     string             `json:"process_name"`
	TemplateID      int64              `json:"template_id"`
	TemplateName    string             `json:"template_name"`
	Category        string             `json:"category,omitempty"`
	Critical        bool               `json:"critical"`
	PeriodStart     string             `json:"period_start"`
	PeriodEnd       string             `json:"period_end,omitempty"`
	PeriodState     string             `json:"period_state"`
	Deadline        string             `json:"deadline,omitempty"`
	DeadlineTime    string             `json:"deadline_time,omitempty"`
	BaseState       calendar.BaseState `json:"base_state"`
	Status          compliance.Status  `json:"status"`
	FulfillmentDate string             `json:"fulfillment_date,omitempty"`
	FulfillmentTime string             `json:"fulfillment_time,omitempty"`
	FulfilledBy     string             `json:"fulfilled_by,omitempty"`
}

func toRowViews(rows []app.ReportRow) []rowView {
	out := make([]rowView, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowView{
			OccurrenceID:    r.OccurrenceID,
			PeriodID:        r.PeriodID,
			ClientID:        r.ClientID,
			ProcessID:       r.ProcessID,
			ProcessName:     r.ProcessName,
			TemplateID:      r.TemplateID,
			TemplateName:    r.TemplateName,
			Category:        r.Category,
			Critical:        r.Critical,
			PeriodStart:     r.PeriodStart.Format(calendar.DateLayout),
			PeriodEnd:       dateString(r.PeriodEnd),
			PeriodState:     r.PeriodState,
			Deadline:        dateString(r.Deadline),
			DeadlineTime:    timeString(r.DeadlineTime),
			BaseState:       r.BaseState,
			Status:          r.Status,
			FulfillmentDate: dateString(r.FulfillmentDate),
			FulfillmentTime: timeString(r.FulfillmentTime),
			FulfilledBy:     r.FulfilledBy,
		})
	}
	return out
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(calendar.DateLayout)
}

func timeString(t *calendar.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return t.String()
}
