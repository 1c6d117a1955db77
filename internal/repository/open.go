package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/parkinsons-variant-viewer/internal/database"
	"github.com/parkinsons-variant-viewer/internal/domain"
)

// Open connects to the configured backend. The schema must already be migrated.
func Open(ctx context.Context, config domain.DatabaseConfig, logger *logrus.Logger) (Store, error) {
	switch config.Driver {
	case domain.DriverSQLite:
		db, err := database.OpenSQLite(ctx, config.Path)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", config.Path).Info("Using SQLite store")
		return NewSQLiteStore(db, logger), nil
	case domain.DriverPostgres:
		db, err := database.NewConnection(ctx, config, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(db.Pool, logger), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
}
