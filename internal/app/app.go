// Package app wires configuration, logging, storage and the ClinVar clients
// into the services used by the command line and the web server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/parkinsons-variant-viewer/internal/api"
	"github.com/parkinsons-variant-viewer/internal/config"
	"github.com/parkinsons-variant-viewer/internal/database"
	"github.com/parkinsons-variant-viewer/internal/logging"
	"github.com/parkinsons-variant-viewer/internal/repository"
	"github.com/parkinsons-variant-viewer/internal/service"
	"github.com/parkinsons-variant-viewer/pkg/external"
	"github.com/parkinsons-variant-viewer/pkg/hgvs"
)

// App holds the long lived components of one process
type App struct {
	Config *config.Manager
	Logger *logrus.Logger

	logCloser io.Closer
	store     repository.Store
	annotator *service.Annotator
}

// New loads configuration and sets up logging. Storage and upstream clients
// are created lazily because several commands need neither.
func New(configFile string) (*App, error) {
	manager, err := config.NewManager(configFile)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := manager.GetConfig()
	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"driver":      cfg.Database.Driver,
	}).Debug("Configuration loaded")

	return &App{
		Config:    manager,
		Logger:    logger,
		logCloser: closer,
	}, nil
}

// Migrations returns a migration runner for the configured database
func (a *App) Migrations(ctx context.Context) (*database.MigrationRunner, error) {
	return database.NewMigrationRunner(ctx, *a.Config.GetDatabaseConfig(), a.Logger)
}

// Store opens the configured store, applying pending migrations first
func (a *App) Store(ctx context.Context) (repository.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	runner, err := a.Migrations(ctx)
	if err != nil {
		return nil, err
	}
	err = runner.Up(ctx)
	if cerr := runner.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, *a.Config.GetDatabaseConfig(), a.Logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// Annotator builds the ClinVar annotation pipeline
func (a *App) Annotator() *service.Annotator {
	if a.annotator != nil {
		return a.annotator
	}
	apis := a.Config.GetExternalAPIConfig()

	clinvar := external.NewClinVarClient(apis.ClinVar, apis.CircuitBreaker, a.Logger)
	hgnc := external.NewHGNCClient(apis.HGNC, apis.CircuitBreaker, a.Logger)
	a.annotator = service.NewAnnotator(clinvar, service.NewNormalizer(hgnc, a.Logger), a.Logger)
	return a.annotator
}

// BatchAnnotator builds the batch pipeline over the configured store
func (a *App) BatchAnnotator(ctx context.Context) (*service.BatchAnnotator, error) {
	store, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewBatchAnnotator(hgvs.NewBuilder(), a.Annotator(), store, a.Config.GetConfig().Annotation, a.Logger), nil
}

// Server builds the HTTP server
func (a *App) Server(ctx context.Context) (*api.Server, error) {
	batch, err := a.BatchAnnotator(ctx)
	if err != nil {
		return nil, err
	}
	return api.NewServer(a.Config, api.Dependencies{
		Store:     a.store,
		Uploads:   service.NewUploadHandler(a.store, batch, a.Logger),
		Annotator: a.Annotator(),
	}, a.Logger)
}

// Close releases the store and flushes the log file
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}
