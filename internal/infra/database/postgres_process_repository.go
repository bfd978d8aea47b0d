package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"compliance_calendar/internal/domain/calendar"
)

type PostgresProcessRepository struct {
	db DBTX
}

func NewPostgresProcessRepository(db DBTX) *PostgresProcessRepository {
	return &PostgresProcessRepository{db: db}
}

const templateColumns = `id, process_id, name, reference_date, deadline_time, mandatory, critical, category`

func (r *PostgresProcessRepository) Create(ctx context.Context, p *calendar.MasterProcess) error {
	query := `INSERT INTO master_processes (name, temporality, frequency, starts_on_day_1)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Temporality, p.Frequency, p.StartsOnDay1).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating master process: %w", err)
	}

	tplQuery := `INSERT INTO milestone_templates (process_id, name, reference_date, deadline_time, mandatory, critical, category)
                  VALUES ($1, $2, $3, $4, $5, $6, $7)
                  RETURNING id`
	for _, t := range p.Templates {
		t.ProcessID = p.ID
		err := r.db.QueryRowContext(ctx, tplQuery,
			t.ProcessID, t.Name, nullTime(t.ReferenceDate), nullTimeOfDay(t.DeadlineTime), t.Mandatory, t.Critical, t.Category,
		).Scan(&t.ID)
		if err != nil {
			return fmt.Errorf("error creating milestone template %q: %w", t.Name, err)
		}
	}
	return nil
}

func (r *PostgresProcessRepository) GetByID(ctx context.Context, id int64) (*calendar.MasterProcess, error) {
	query := `SELECT id, name, temporality, frequency, starts_on_day_1, created_at FROM master_processes WHERE id = $1`
	p := calendar.MasterProcess{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Temporality, &p.Frequency, &p.StartsOnDay1, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("process %d: %w", id, calendar.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting master process by ID: %w", err)
	}
	p.Templates, err = r.ListMilestoneTemplates(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresProcessRepository) GetTemplate(ctx context.Context, id int64) (*calendar.MilestoneTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM milestone_templates WHERE id = $1`
	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("milestone template %d: %w", id, calendar.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting milestone template by ID: %w", err)
	}
	return t, nil
}

func (r *PostgresProcessRepository) ListMilestoneTemplates(ctx context.Context, processID int64) ([]*calendar.MilestoneTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM milestone_templates WHERE process_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, processID)
	if err != nil {
		return nil, fmt.Errorf("error listing milestone templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*calendar.MilestoneTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning milestone template: %w", err)
		}
		templates = append(templates, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating milestone templates: %w", err)
	}
	return templates, nil
}

func scanTemplate(row rowScanner) (*calendar.MilestoneTemplate, error) {
	var (
		t            calendar.MilestoneTemplate
		refDate      sql.NullTime
		deadlineTime sql.NullString
	)
	if err := row.Scan(&t.ID, &t.ProcessID, &t.Name, &refDate, &deadlineTime, &t.Mandatory, &t.Critical, &t.Category); err != nil {
		return nil, err
	}
	t.ReferenceDate = timePtr(refDate)
	dt, err := timeOfDayPtr(deadlineTime)
	if err != nil {
		return nil, err
	}
	t.DeadlineTime = dt
	return &t, nil
}
