package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// MigrationRunner handles database migrations
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner creates a runner for the configured driver using the embedded migrations
func NewMigrationRunner(ctx context.Context, config domain.DatabaseConfig, logger *logrus.Logger) (*MigrationRunner, error) {
	src, err := iofs.New(migrationFiles, "migrations/"+config.Driver)
	if err != nil {
		return nil, fmt.Errorf("loading %s migrations: %w", config.Driver, err)
	}

	var m *migrate.Migrate
	switch config.Driver {
	case domain.DriverSQLite:
		db, err := OpenSQLite(ctx, config.Path)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating sqlite migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite", driver)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating migration instance: %w", err)
		}
	case domain.DriverPostgres:
		m, err = migrate.NewWithSourceInstance("iofs", src, config.URL)
		if err != nil {
			return nil, fmt.Errorf("creating migration instance: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	return &MigrationRunner{
		migrate: m,
		log:     logger,
	}, nil
}

// Up runs all pending migrations
func (mr *MigrationRunner) Up(ctx context.Context) error {
	mr.log.Info("Running database migrations up")

	if err := mr.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("No pending migrations to run")
			return nil
		}
		return fmt.Errorf("running migrations up: %w", err)
	}

	mr.logVersion("Migrations completed successfully")
	return nil
}

// Reset drops every table then recreates the schema
func (mr *MigrationRunner) Reset(ctx context.Context) error {
	mr.log.Warn("Resetting database: all inputs and outputs will be removed")

	if err := mr.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations down: %w", err)
	}
	return mr.Up(ctx)
}

// Version returns the current migration version
func (mr *MigrationRunner) Version() (uint, bool, error) {
	return mr.migrate.Version()
}

func (mr *MigrationRunner) logVersion(msg string) {
	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.log.WithError(err).Warn("Could not get migration version")
		return
	}
	mr.log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info(msg)
}

// Close closes the migration runner and its connection
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
