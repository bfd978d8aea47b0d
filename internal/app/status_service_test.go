package app_test

import (
	"context"
	"testing"
	"time"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/domain/compliance"
	"compliance_calendar/internal/infra/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportFixture struct {
	store    *memstore.Store
	process  *calendar.MasterProcess
	late     *calendar.Occurrence
	onTime   *calendar.Occurrence
	today    *calendar.Occurrence
	inactive *calendar.Occurrence
}

func newReportFixture(t *testing.T) reportFixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	process := createProcess(t, store, &calendar.MasterProcess{Name: "Payroll", Temporality: calendar.TemporalityMonthly,
		Templates: []*calendar.MilestoneTemplate{{Name: "Pay", Critical: true}}})
	tplID := process.Templates[0].ID

	_, late := seedOccurrence(t, store, "acme", process.ID, tplID, day(2024, time.January, 10))
	five := calendar.TimeOfDay{Hour: 17}
	require.NoError(t, store.Stores().Occurrences.Update(ctx, late.ID, calendar.OccurrencePatch{DeadlineTime: &five}))
	_, onTime := seedOccurrence(t, store, "acme", process.ID, tplID, day(2024, time.January, 11))
	_, today := seedOccurrence(t, store, "globex", process.ID, tplID, day(2024, time.January, 15))
	_, inactive := seedOccurrence(t, store, "acme", process.ID, tplID, day(2024, time.January, 12))
	off := false
	require.NoError(t, store.Stores().Occurrences.Update(ctx, inactive.ID, calendar.OccurrencePatch{Active: &off}))

	return reportFixture{store: store, process: process, late: late, onTime: onTime, today: today, inactive: inactive}
}

func TestFulfillBulk(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	now := time.Date(2024, time.January, 12, 9, 0, 0, 0, time.UTC)
	svc := app.NewFulfillmentService(f.store, quietLogger(), fixedClock(now))

	six := calendar.TimeOfDay{Hour: 18}
	n, err := svc.FulfillBulk(ctx, app.FulfillRequest{
		OccurrenceIDs: []int64{f.late.ID, f.inactive.ID},
		Date:          day(2024, time.January, 10),
		Time:          &six,
		Author:        "maria",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	o, err := f.store.Stores().Occurrences.GetByID(ctx, f.late.ID)
	require.NoError(t, err)
	assert.Equal(t, calendar.StateFinalized, o.State)
	assert.Equal(t, now, o.StatusChangedAt)

	skipped, err := f.store.Stores().Occurrences.GetByID(ctx, f.inactive.ID)
	require.NoError(t, err)
	assert.Equal(t, calendar.StateNew, skipped.State)
	_, err = f.store.Stores().Fulfillments.LatestByOccurrence(ctx, f.inactive.ID)
	assert.ErrorIs(t, err, calendar.ErrNotFound)

	_, err = svc.FulfillBulk(ctx, app.FulfillRequest{Date: day(2024, time.January, 10)})
	assert.ErrorIs(t, err, calendar.ErrValidation)
}

func TestReport_ComputesStatusPerRow(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	fulfill := app.NewFulfillmentService(f.store, quietLogger(), time.Now)
	earlier := calendar.TimeOfDay{Hour: 16, Minute: 59}
	_, err := fulfill.FulfillBulk(ctx, app.FulfillRequest{OccurrenceIDs: []int64{f.late.ID}, Date: day(2024, time.January, 10), Time: &earlier, Author: "maria"})
	require.NoError(t, err)

	svc := app.NewStatusService(f.store, quietLogger())
	rows, err := svc.Report(ctx, app.ReportFilter{}, time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byID := make(map[int64]app.ReportRow)
	for _, r := range rows {
		byID[r.OccurrenceID] = r
	}
	assert.Equal(t, compliance.StatusCompletedOnTime, byID[f.late.ID].Status)
	assert.Equal(t, "maria", byID[f.late.ID].FulfilledBy)
	assert.Equal(t, app.PeriodFinalized, byID[f.late.ID].PeriodState)
	assert.Equal(t, compliance.StatusPendingLate, byID[f.onTime.ID].Status)
	assert.Equal(t, app.PeriodInProgress, byID[f.onTime.ID].PeriodState)
	assert.Equal(t, compliance.StatusDueToday, byID[f.today.ID].Status)
	assert.Equal(t, "Payroll", byID[f.today.ID].ProcessName)
	assert.Equal(t, "Pay", byID[f.today.ID].TemplateName)
	assert.True(t, byID[f.today.ID].Critical)
	assert.NotContains(t, byID, f.inactive.ID)
}

func TestReport_Filters(t *testing.T) {
	f := newReportFixture(t)
	svc := app.NewStatusService(f.store, quietLogger())
	asOf := day(2024, time.January, 15)
	ctx := context.Background()

	rows, err := svc.Report(ctx, app.ReportFilter{ClientID: "globex"}, asOf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.today.ID, rows[0].OccurrenceID)

	rows, err = svc.Report(ctx, app.ReportFilter{Statuses: []compliance.Status{compliance.StatusPendingLate}}, asOf)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	to := day(2024, time.January, 10)
	rows, err = svc.Report(ctx, app.ReportFilter{DeadlineTo: &to}, asOf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.late.ID, rows[0].OccurrenceID)

	rows, err = svc.Report(ctx, app.ReportFilter{TemplateID: 999}, asOf)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
