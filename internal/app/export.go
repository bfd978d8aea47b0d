package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"compliance_calendar/internal/domain/calendar"
)

var exportHeader = []string{
	"occurrence_id", "client_id", "process", "period_start", "period_end", "period_state",
	"milestone", "category", "critical", "deadline", "deadline_time",
	"base_state", "status", "fulfillment_date", "fulfillment_time", "fulfilled_by",
}

// WriteCSV writes report rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.OccurrenceID, 10),
			r.ClientID,
			r.ProcessName,
			r.PeriodStart.Format(calendar.DateLayout),
			formatDate(r.PeriodEnd),
			r.PeriodState,
			r.TemplateName,
			r.Category,
			strconv.FormatBool(r.Critical),
			formatDate(r.Deadline),
			formatTimeOfDay(r.DeadlineTime),
			string(r.BaseState),
			string(r.Status),
			formatDate(r.FulfillmentDate),
			formatTimeOfDay(r.FulfillmentTime),
			r.FulfilledBy,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for occurrence %d: %w", r.OccurrenceID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(calendar.DateLayout)
}

func formatTimeOfDay(t *calendar.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return t.String()
}
