package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonathan/placement-portal/internal/bulk"
	"github.com/jonathan/placement-portal/internal/config"
	"github.com/jonathan/placement-portal/internal/db"
	"github.com/jonathan/placement-portal/internal/jobs"
	"github.com/jonathan/placement-portal/internal/logging"
	"github.com/jonathan/placement-portal/internal/notify"
	"github.com/jonathan/placement-portal/internal/observability"
	"go.uber.org/zap"
)

// app is the wired set of services a command runs against.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *db.DB
	dispatcher *notify.Dispatcher
	jobs       *jobs.Service
	pipeline   *bulk.Pipeline
	printer    *observability.Printer
}

// loadConfig reads the config file and environment, then applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logJSON {
		cfg.LogJSON = true
	}
	if debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp connects to the database and wires the engine. Close releases everything.
func newApp(ctx context.Context, out io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogJSON, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	notifier, err := newNotifier(cfg.Notify.Mode, database, logger)
	if err != nil {
		database.Close()
		return nil, err
	}
	dispatcher := notify.NewDispatcher(notifier, notify.Options{
		Workers:       cfg.Notify.Workers,
		QueueSize:     cfg.Notify.QueueSize,
		Timeout:       cfg.Notify.Timeout,
		RatePerSecond: cfg.Notify.RatePerSecond,
		Burst:         cfg.Notify.Burst,
	}, logger.Named("notify"))

	return &app{
		cfg:        cfg,
		logger:     logger,
		db:         database,
		dispatcher: dispatcher,
		jobs:       jobs.NewService(database, database, database, dispatcher, logger.Named("jobs")),
		pipeline:   newPipeline(cfg, database, database.Results(), dispatcher, logger),
		printer:    observability.NewPrinter(out),
	}, nil
}

// newPipeline builds the bulk pipeline from configuration.
func newPipeline(cfg *config.Config, database *db.DB, store *db.ResultStore, dispatcher bulk.Dispatcher, logger *zap.Logger) *bulk.Pipeline {
	return bulk.NewPipeline(database, database, store, dispatcher, bulk.Options{
		Statuses:       bulk.NewStatusPolicy(cfg.Statuses),
		Concurrency:    cfg.Bulk.Concurrency,
		MaxIdentifiers: cfg.Bulk.MaxIdentifiers,
		NotifyWait:     cfg.Bulk.NotifyWait,
	}, logger.Named("bulk"))
}

// newNotifier picks the delivery channel for the configured mode.
func newNotifier(mode string, outbox notify.OutboxWriter, logger *zap.Logger) (notify.Notifier, error) {
	switch mode {
	case "", config.NotifyModeLog:
		return notify.NewLogNotifier(logger.Named("notifications")), nil
	case config.NotifyModeOutbox:
		return notify.NewOutboxNotifier(outbox), nil
	default:
		return nil, fmt.Errorf("unknown notify mode %q", mode)
	}
}

// Close drains pending notifications and releases the database pool.
func (a *app) Close() {
	a.dispatcher.Close()
	a.db.Close()
	_ = a.logger.Sync()
}
