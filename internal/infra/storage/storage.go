// Package storage opens the calendar backend selected by configuration.
package storage

import (
	"context"
	"fmt"

	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/infra/config"
	idb "compliance_calendar/internal/infra/database"
	"compliance_calendar/internal/infra/memstore"

	"github.com/sirupsen/logrus"
)

// Backend is an opened store. Close releases its connections.
type Backend struct {
	Tx    calendar.Transactor
	Close func() error
}

// Open connects to the configured storage driver. Postgres is migrated on open
// when migrate is set.
func Open(ctx context.Context, cfg *config.AppConfig, migrate bool, log *logrus.Entry) (*Backend, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn("Using in-memory storage, data is lost on exit")
		return &Backend{Tx: memstore.New(), Close: func() error { return nil }}, nil
	case config.StorageDriverPostgres:
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if migrate {
			if err := idb.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
			log.Info("Database schema is up to date")
		}
		log.Info("Database connection established")
		return &Backend{Tx: idb.NewTransactor(db), Close: db.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
