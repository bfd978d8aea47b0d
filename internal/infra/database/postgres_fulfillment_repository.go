package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"compliance_calendar/internal/domain/calendar"
)

type PostgresFulfillmentRepository struct {
	db DBTX
}

func NewPostgresFulfillmentRepository(db DBTX) *PostgresFulfillmentRepository {
	return &PostgresFulfillmentRepository{db: db}
}

func (r *PostgresFulfillmentRepository) Create(ctx context.Context, rec *calendar.FulfillmentRecord) error {
	query := `INSERT INTO fulfillments (occurrence_id, fulfilled_on, fulfilled_at, author, observation)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		rec.OccurrenceID, calendar.DateOf(rec.Date), nullTimeOfDay(rec.Time), rec.Author, rec.Observation,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("occurrence %d: %w", rec.OccurrenceID, calendar.ErrNotFound)
		}
		return fmt.Errorf("error creating fulfillment record: %w", err)
	}
	return nil
}

func (r *PostgresFulfillmentRepository) LatestByOccurrence(ctx context.Context, occurrenceID int64) (*calendar.FulfillmentRecord, error) {
	query := `SELECT id, occurrence_id, fulfilled_on, fulfilled_at, author, observation, created_at
               FROM fulfillments
               WHERE occurrence_id = $1
               ORDER BY id DESC
               LIMIT 1`
	var (
		rec calendar.FulfillmentRecord
		at  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, occurrenceID).Scan(&rec.ID, &rec.OccurrenceID, &rec.Date, &at, &rec.Author, &rec.Observation, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fulfillment for occurrence %d: %w", occurrenceID, calendar.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting latest fulfillment: %w", err)
	}
	rec.Date = calendar.DateOf(rec.Date)
	rec.Time, err = timeOfDayPtr(at)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
