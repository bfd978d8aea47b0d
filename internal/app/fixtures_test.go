package app_test

import (
	"context"
	"testing"
	"time"

	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/infra/memstore"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

func day(year int, month time.Month, d int) time.Time {
	return calendar.Date(year, month, d)
}

func datePtr(year int, month time.Month, d int) *time.Time {
	t := day(year, month, d)
	return &t
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func createProcess(t *testing.T, store *memstore.Store, p *calendar.MasterProcess) *calendar.MasterProcess {
	t.Helper()
	require.NoError(t, store.Stores().Processes.Create(context.Background(), p))
	return p
}

// seedOccurrence stores a period and one occurrence of templateID in it.
func seedOccurrence(t *testing.T, store *memstore.Store, clientID string, processID, templateID int64, deadline time.Time) (*calendar.Period, *calendar.Occurrence) {
	t.Helper()
	ctx := context.Background()
	st := store.Stores()

	year, month := deadline.Year(), deadline.Month()
	end := calendar.Date(year, month, calendar.DaysIn(year, month))
	p := &calendar.Period{
		ClientID:  clientID,
		ProcessID: processID,
		StartDate: calendar.Date(year, month, 1),
		EndDate:   &end,
		Month:     int(month),
		Year:      year,
		Active:    true,
	}
	require.NoError(t, st.Periods.Save(ctx, p))

	o := &calendar.Occurrence{
		PeriodID:   p.ID,
		TemplateID: templateID,
		State:      calendar.StateNew,
		Deadline:   &deadline,
		Active:     true,
	}
	require.NoError(t, st.Occurrences.Save(ctx, o))
	return p, o
}
