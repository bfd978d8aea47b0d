package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"compliance_calendar/internal/domain/calendar"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPeriodRepository_Save(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresPeriodRepository(db)
	ctx := context.Background()

	t.Run("inserts a new period", func(t *testing.T) {
		start := calendar.Date(2024, time.March, 1)
		end := calendar.Date(2024, time.March, 31)
		created := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
		p := &calendar.Period{ClientID: "acme", ProcessID: 3, StartDate: start, EndDate: &end, Month: 3, Year: 2024, Active: true}

		mock.ExpectQuery(`INSERT INTO periods`).
			WithArgs("acme", int64(3), start, end, 3, 2024, nil, true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

		require.NoError(t, repo.Save(ctx, p))
		assert.Equal(t, int64(11), p.ID)
		assert.Equal(t, created, p.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown process", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO periods`).
			WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

		err := repo.Save(ctx, &calendar.Period{ClientID: "acme", ProcessID: 99, StartDate: calendar.Date(2024, time.March, 1)})
		assert.ErrorIs(t, err, calendar.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPeriodRepository_GetByID(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresPeriodRepository(db)
	ctx := context.Background()

	t.Run("scans nullable columns", func(t *testing.T) {
		cols := []string{"id", "client_id", "process_id", "start_date", "end_date", "month", "year", "previous_id", "active", "created_at"}
		mock.ExpectQuery(`SELECT (.+) FROM periods WHERE id = \$1`).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(int64(4), "acme", int64(3), calendar.Date(2024, time.April, 1), nil, 4, 2024, int64(3), false, time.Now()))

		p, err := repo.GetByID(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, "acme", p.ClientID)
		assert.Nil(t, p.EndDate)
		require.NotNil(t, p.PreviousID)
		assert.Equal(t, int64(3), *p.PreviousID)
		assert.False(t, p.Active)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM periods WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, 5)
		assert.ErrorIs(t, err, calendar.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOccurrenceRepository_Update(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresOccurrenceRepository(db)
	ctx := context.Background()

	t.Run("writes only patched columns", func(t *testing.T) {
		deadline := calendar.Date(2024, time.February, 20)
		finalized := calendar.StateFinalized
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE occurrences SET deadline = $1, state = $2 WHERE id = $3`)).
			WithArgs(deadline, "Finalized", int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, 5, calendar.OccurrencePatch{Deadline: &deadline, State: &finalized}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clears deadline time", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE occurrences SET deadline_time = NULL WHERE id = $1`)).
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, 5, calendar.OccurrencePatch{ClearDeadlineTime: true}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing occurrence", func(t *testing.T) {
		off := false
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE occurrences SET active = $1 WHERE id = $2`)).
			WithArgs(false, int64(6)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, 6, calendar.OccurrencePatch{Active: &off})
		assert.ErrorIs(t, err, calendar.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBuildOccurrenceQuery(t *testing.T) {
	tpl := int64(7)
	from := time.Date(2024, time.February, 1, 15, 0, 0, 0, time.UTC)
	query, args := buildOccurrenceQuery(calendar.OccurrenceFilter{
		TemplateID:   &tpl,
		ClientIDs:    []string{"acme", "globex"},
		DeadlineFrom: &from,
		ActiveOnly:   true,
	})

	assert.Equal(t,
		`SELECT `+occurrenceColumns+` FROM occurrences o JOIN periods p ON p.id = o.period_id`+
			` WHERE p.client_id = ANY($1) AND o.template_id = $2 AND o.deadline >= $3 AND o.active`+
			` ORDER BY o.deadline NULLS LAST, o.id`,
		query)
	require.Len(t, args, 3)
	assert.Equal(t, tpl, args[1])
	assert.Equal(t, calendar.Date(2024, time.February, 1), args[2])

	query, args = buildOccurrenceQuery(calendar.OccurrenceFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestOccurrenceRepository_Find(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresOccurrenceRepository(db)

	cols := []string{"id", "period_id", "template_id", "state", "deadline", "deadline_time", "status_changed_at", "category", "active"}
	mock.ExpectQuery(`SELECT (.+) FROM occurrences o WHERE o.period_id = \$1 AND o.active`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), int64(2), int64(7), "New", calendar.Date(2024, time.January, 10), "17:00:00", time.Now(), "tax", true).
			AddRow(int64(3), int64(2), int64(8), "InProgress", nil, nil, time.Now(), "", true))

	periodID := int64(2)
	found, err := repo.Find(context.Background(), calendar.OccurrenceFilter{PeriodID: &periodID, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.NotNil(t, found[0].DeadlineTime)
	assert.Equal(t, calendar.TimeOfDay{Hour: 17}, *found[0].DeadlineTime)
	assert.Equal(t, "tax", found[0].Category)
	assert.Nil(t, found[1].Deadline)
	assert.Nil(t, found[1].DeadlineTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillmentRepository_LatestByOccurrence(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresFulfillmentRepository(db)
	ctx := context.Background()
	cols := []string{"id", "occurrence_id", "fulfilled_on", "fulfilled_at", "author", "observation", "created_at"}

	mock.ExpectQuery(`SELECT (.+) FROM fulfillments`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(9), int64(1), calendar.Date(2024, time.January, 10), "18:00:00", "maria", "", time.Now()))

	rec, err := repo.LatestByOccurrence(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(9), rec.ID)
	require.NotNil(t, rec.Time)
	assert.Equal(t, calendar.TimeOfDay{Hour: 18}, *rec.Time)

	mock.ExpectQuery(`SELECT (.+) FROM fulfillments`).
		WithArgs(int64(2)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.LatestByOccurrence(ctx, 2)
	assert.ErrorIs(t, err, calendar.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRepository_Create(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresProcessRepository(db)

	ref := calendar.Date(2024, time.January, 20)
	five := calendar.TimeOfDay{Hour: 17}
	p := &calendar.MasterProcess{
		Name:        "VAT",
		Temporality: calendar.TemporalityMonthly,
		Templates:   []*calendar.MilestoneTemplate{{Name: "File", ReferenceDate: &ref, DeadlineTime: &five, Critical: true}},
	}

	mock.ExpectQuery(`INSERT INTO master_processes`).
		WithArgs("VAT", "MONTHLY", 0, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), time.Now()))
	mock.ExpectQuery(`INSERT INTO milestone_templates`).
		WithArgs(int64(3), "File", ref, "17:00:00", false, true, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, int64(8), p.Templates[0].ID)
	assert.Equal(t, int64(3), p.Templates[0].ProcessID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor(t *testing.T) {
	db, mock := setupMock(t)
	tx := NewTransactor(db)
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE periods SET active`).
			WithArgs(false, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
			return st.Periods.SetActive(ctx, 1, false)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tx.WithinTx(ctx, func(ctx context.Context, st calendar.Stores) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
