package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"compliance_calendar/internal/domain/calendar"

	"github.com/lib/pq" // For pq.Array
)

type PostgresOccurrenceRepository struct {
	db DBTX
}

func NewPostgresOccurrenceRepository(db DBTX) *PostgresOccurrenceRepository {
	return &PostgresOccurrenceRepository{db: db}
}

const occurrenceColumns = `o.id, o.period_id, o.template_id, o.state, o.deadline, o.deadline_time, o.status_changed_at, o.category, o.active`

func (r *PostgresOccurrenceRepository) Save(ctx context.Context, o *calendar.Occurrence) error {
	if o.ID != 0 {
		query := `UPDATE occurrences
                   SET state = $1, deadline = $2, deadline_time = $3, status_changed_at = $4, category = $5, active = $6
                   WHERE id = $7`
		res, err := r.db.ExecContext(ctx, query, o.State, nullTime(o.Deadline), nullTimeOfDay(o.DeadlineTime), o.StatusChangedAt, o.Category, o.Active, o.ID)
		if err != nil {
			return fmt.Errorf("error updating occurrence: %w", err)
		}
		return expectOneRow(res, fmt.Sprintf("occurrence %d", o.ID))
	}

	query := `INSERT INTO occurrences (period_id, template_id, state, deadline, deadline_time, status_changed_at, category, active)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		o.PeriodID, o.TemplateID, o.State, nullTime(o.Deadline), nullTimeOfDay(o.DeadlineTime), o.StatusChangedAt, o.Category, o.Active,
	).Scan(&o.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("period %d: %w", o.PeriodID, calendar.ErrNotFound)
		}
		return fmt.Errorf("error creating occurrence: %w", err)
	}
	return nil
}

func (r *PostgresOccurrenceRepository) GetByID(ctx context.Context, id int64) (*calendar.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences o WHERE o.id = $1`
	o, err := scanOccurrence(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("occurrence %d: %w", id, calendar.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting occurrence by ID: %w", err)
	}
	return o, nil
}

// buildOccurrenceQuery renders the filter as a parameterised SELECT.
func buildOccurrenceQuery(f calendar.OccurrenceFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	from := `occurrences o`
	if len(f.ClientIDs) > 0 {
		from += ` JOIN periods p ON p.id = o.period_id`
		conds = append(conds, "p.client_id = ANY("+arg(pq.Array(f.ClientIDs))+")")
	}
	if len(f.IDs) > 0 {
		conds = append(conds, "o.id = ANY("+arg(pq.Array(f.IDs))+")")
	}
	if f.TemplateID != nil {
		conds = append(conds, "o.template_id = "+arg(*f.TemplateID))
	}
	if f.PeriodID != nil {
		conds = append(conds, "o.period_id = "+arg(*f.PeriodID))
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		conds = append(conds, "o.state = ANY("+arg(pq.Array(states))+")")
	}
	if f.DeadlineFrom != nil {
		conds = append(conds, "o.deadline >= "+arg(calendar.DateOf(*f.DeadlineFrom)))
	}
	if f.DeadlineTo != nil {
		conds = append(conds, "o.deadline <= "+arg(calendar.DateOf(*f.DeadlineTo)))
	}
	if f.ActiveOnly {
		conds = append(conds, "o.active")
	}

	query := `SELECT ` + occurrenceColumns + ` FROM ` + from
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY o.deadline NULLS LAST, o.id`
	return query, args
}

func (r *PostgresOccurrenceRepository) Find(ctx context.Context, f calendar.OccurrenceFilter) ([]*calendar.Occurrence, error) {
	query, args := buildOccurrenceQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error finding occurrences: %w", err)
	}
	defer rows.Close()

	occurrences := make([]*calendar.Occurrence, 0)
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning occurrence: %w", err)
		}
		occurrences = append(occurrences, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrences: %w", err)
	}
	return occurrences, nil
}

// Update writes only the columns the patch names.
func (r *PostgresOccurrenceRepository) Update(ctx context.Context, id int64, patch calendar.OccurrencePatch) error {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Deadline != nil {
		set("deadline", calendar.DateOf(*patch.Deadline))
	}
	switch {
	case patch.DeadlineTime != nil:
		set("deadline_time", patch.DeadlineTime.String())
	case patch.ClearDeadlineTime:
		sets = append(sets, "deadline_time = NULL")
	}
	if patch.State != nil {
		set("state", string(*patch.State))
	}
	if patch.StatusChangedAt != nil {
		set("status_changed_at", *patch.StatusChangedAt)
	}
	if patch.Active != nil {
		set("active", *patch.Active)
	}
	if len(sets) == 0 {
		sets = append(sets, "id = id")
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE occurrences SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating occurrence %d: %w", id, err)
	}
	return expectOneRow(res, fmt.Sprintf("occurrence %d", id))
}

func (r *PostgresOccurrenceRepository) CountActiveByPeriod(ctx context.Context, periodID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM occurrences WHERE period_id = $1 AND active`, periodID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting active occurrences: %w", err)
	}
	return n, nil
}

func scanOccurrence(row rowScanner) (*calendar.Occurrence, error) {
	var (
		o            calendar.Occurrence
		deadline     sql.NullTime
		deadlineTime sql.NullString
	)
	if err := row.Scan(&o.ID, &o.PeriodID, &o.TemplateID, &o.State, &deadline, &deadlineTime, &o.StatusChangedAt, &o.Category, &o.Active); err != nil {
		return nil, err
	}
	o.Deadline = timePtr(deadline)
	dt, err := timeOfDayPtr(deadlineTime)
	if err != nil {
		return nil, err
	}
	o.DeadlineTime = dt
	return &o, nil
}
