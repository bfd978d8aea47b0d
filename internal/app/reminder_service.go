// internal/app/reminder_service.go
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/domain/compliance"
	domainTelegram "compliance_calendar/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// ReminderLedger remembers which reminders were already sent.
type ReminderLedger interface {
	// Claim records key and reports whether it was not claimed before.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so a failed send can be retried by the next run.
	Release(ctx context.Context, key string) error
}

// ReminderService alerts an operator chat about open milestones whose
// deadline is close or already past.
type ReminderService struct {
	status    *StatusService
	ledger    ReminderLedger
	client    domainTelegram.Client
	chatID    int64
	lookahead int
	logger    *logrus.Entry
}

func NewReminderService(
	status *StatusService,
	ledger ReminderLedger,
	client domainTelegram.Client,
	chatID int64,
	lookaheadDays int,
	logger *logrus.Entry,
) *ReminderService {
	return &ReminderService{
		status:    status,
		ledger:    ledger,
		client:    client,
		chatID:    chatID,
		lookahead: lookaheadDays,
		logger:    logger,
	}
}

// DispatchResult counts what one reminder run did.
type DispatchResult struct {
	Candidates int
	Sent       int
	Skipped    int
	Failed     int
}

// DispatchDue sends one message per open occurrence with a deadline up to
// lookahead days after asOf. A given occurrence and status is sent at most
// once per day.
func (s *ReminderService) DispatchDue(ctx context.Context, asOf time.Time) (DispatchResult, error) {
	var res DispatchResult
	horizon := calendar.DateOf(asOf).AddDate(0, 0, s.lookahead)
	rows, err := s.status.Report(ctx, ReportFilter{
		DeadlineTo: &horizon,
		Statuses:   []compliance.Status{compliance.StatusPendingLate, compliance.StatusDueToday, compliance.StatusPendingOnTime},
	}, asOf)
	if err != nil {
		return res, fmt.Errorf("failed to build reminder candidates: %w", err)
	}
	res.Candidates = len(rows)
	if len(rows) == 0 {
		s.logger.Info("No milestones due. No reminders sent.")
		return res, nil
	}

	day := calendar.DateOf(asOf).Format(calendar.DateLayout)
	for _, row := range rows {
		key := ReminderKey(row.OccurrenceID, row.Status, day)
		claimed, err := s.ledger.Claim(ctx, key)
		if err != nil {
			return res, fmt.Errorf("failed to claim reminder %s: %w", key, err)
		}
		if !claimed {
			res.Skipped++
			continue
		}

		logCtx := s.logger.WithFields(logrus.Fields{"occurrence_id": row.OccurrenceID, "client_id": row.ClientID, "status": row.Status})
		alert := domainTelegram.Alert{
			ChatID: s.chatID,
			Text:   FormatReminder(row),
			Silent: row.Status == compliance.StatusPendingOnTime && !row.Critical,
		}
		if err := s.client.Send(alert); err != nil {
			logCtx.WithError(err).Error("Failed to send reminder")
			res.Failed++
			if relErr := s.ledger.Release(ctx, key); relErr != nil {
				logCtx.WithError(relErr).Warn("Failed to release reminder key")
			}
			continue
		}
		logCtx.Debug("Reminder sent")
		res.Sent++
	}
	s.logger.WithFields(logrus.Fields{
		"candidates": res.Candidates,
		"sent":       res.Sent,
		"skipped":    res.Skipped,
		"failed":     res.Failed,
	}).Info("Reminder run finished")
	return res, nil
}

// ReminderKey identifies one reminder in the ledger.
func ReminderKey(occurrenceID int64, status compliance.Status, day string) string {
	return fmt.Sprintf("reminder:%d:%s:%s", occurrenceID, status, day)
}

// FormatReminder renders the message for one report row.
func FormatReminder(row ReportRow) string {
	var b strings.Builder
	switch row.Status {
	case compliance.StatusPendingLate:
		b.WriteString("OVERDUE: ")
	case compliance.StatusDueToday:
		b.WriteString("Due today: ")
	default:
		b.WriteString("Upcoming: ")
	}
	fmt.Fprintf(&b, "%s (%s) for client %s", row.TemplateName, row.ProcessName, row.ClientID)
	if row.Deadline != nil {
		fmt.Fprintf(&b, ", deadline %s", row.Deadline.Format(calendar.DateLayout))
		if row.DeadlineTime != nil {
			fmt.Fprintf(&b, " %s", row.DeadlineTime.String())
		}
	}
	if row.Critical {
		b.WriteString(" [critical]")
	}
	return b.String()
}
