package database

import (
	"database/sql"
	"errors"
	"fmt"

	"compliance_calendar/internal/domain/calendar"

	"github.com/lib/pq"
)

const foreignKeyViolation = pq.ErrorCode("23503")

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

// expectOneRow turns an update that matched nothing into ErrNotFound.
func expectOneRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for %s: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, calendar.ErrNotFound)
	}
	return nil
}
