package scheduler

import (
	"context"
	"fmt"
	"time"

	"compliance_calendar/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const reminderJobTimeout = 5 * time.Minute

// ReminderDispatcher is the part of app.ReminderService the scheduler drives.
type ReminderDispatcher interface {
	DispatchDue(ctx context.Context, asOf time.Time) (app.DispatchResult, error)
}

type ReminderScheduler struct {
	cronEngine *cron.Cron
	reminders  ReminderDispatcher
	logger     *logrus.Entry
	cronSpec   string
	now        func() time.Time
}

func NewReminderScheduler(reminders ReminderDispatcher, logger *logrus.Entry, cronSpec string) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		reminders:  reminders,
		logger:     logger,
		cronSpec:   cronSpec,
		now:        time.Now,
	}
}

// Start registers the reminder job and starts the cron engine.
func (s *ReminderScheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.runReminders); err != nil {
		return fmt.Errorf("could not add reminder cron job %q: %w", s.cronSpec, err)
	}
	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Reminder scheduler started")
	return nil
}

func (s *ReminderScheduler) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), reminderJobTimeout)
	defer cancel()

	s.logger.Info("Cron job triggered for deadline reminders")
	res, err := s.reminders.DispatchDue(ctx, s.now())
	if err != nil {
		s.logger.WithError(err).Error("Error during reminder dispatch")
		return
	}
	if res.Failed > 0 {
		s.logger.WithField("failed", res.Failed).Warn("Some reminders could not be sent; they will be retried on the next run")
	}
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped")
}
