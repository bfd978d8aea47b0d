package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"compliance_calendar/internal/domain/calendar"
)

type PostgresPeriodRepository struct {
	db DBTX
}

func NewPostgresPeriodRepository(db DBTX) *PostgresPeriodRepository {
	return &PostgresPeriodRepository{db: db}
}

const periodColumns = `id, client_id, process_id, start_date, end_date, month, year, previous_id, active, created_at`

func (r *PostgresPeriodRepository) Save(ctx context.Context, p *calendar.Period) error {
	if p.ID != 0 {
		query := `UPDATE periods
                   SET start_date = $1, end_date = $2, month = $3, year = $4, previous_id = $5, active = $6
                   WHERE id = $7`
		res, err := r.db.ExecContext(ctx, query, p.StartDate, nullTime(p.EndDate), p.Month, p.Year, nullInt64(p.PreviousID), p.Active, p.ID)
		if err != nil {
			return fmt.Errorf("error updating period: %w", err)
		}
		return expectOneRow(res, fmt.Sprintf("period %d", p.ID))
	}

	query := `INSERT INTO periods (client_id, process_id, start_date, end_date, month, year, previous_id, active)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		p.ClientID, p.ProcessID, p.StartDate, nullTime(p.EndDate), p.Month, p.Year, nullInt64(p.PreviousID), p.Active,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("process %d: %w", p.ProcessID, calendar.ErrNotFound)
		}
		return fmt.Errorf("error creating period: %w", err)
	}
	return nil
}

func (r *PostgresPeriodRepository) GetByID(ctx context.Context, id int64) (*calendar.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM periods WHERE id = $1`
	p, err := scanPeriod(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("period %d: %w", id, calendar.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting period by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPeriodRepository) ListByClientAndProcess(ctx context.Context, clientID string, processID int64) ([]*calendar.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM periods WHERE client_id = $1 AND process_id = $2 ORDER BY start_date, id`
	rows, err := r.db.QueryContext(ctx, query, clientID, processID)
	if err != nil {
		return nil, fmt.Errorf("error listing periods: %w", err)
	}
	defer rows.Close()

	periods := make([]*calendar.Period, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning period: %w", err)
		}
		periods = append(periods, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating periods: %w", err)
	}
	return periods, nil
}

func (r *PostgresPeriodRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE periods SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("error updating period active flag: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("period %d", id))
}

func scanPeriod(row rowScanner) (*calendar.Period, error) {
	var (
		p          calendar.Period
		endDate    sql.NullTime
		previousID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.ClientID, &p.ProcessID, &p.StartDate, &endDate, &p.Month, &p.Year, &previousID, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.StartDate = calendar.DateOf(p.StartDate)
	p.EndDate = timePtr(endDate)
	if previousID.Valid {
		id := previousID.Int64
		p.PreviousID = &id
	}
	return &p, nil
}
