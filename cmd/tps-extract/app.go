package main

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/infrastructure/persistence"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/services"
	"github.com/DFE-Digital/trs-workforce/pkg/composables"
	"github.com/DFE-Digital/trs-workforce/pkg/configuration"
	"github.com/DFE-Digital/trs-workforce/pkg/logging"
	"github.com/DFE-Digital/trs-workforce/pkg/objectstore"
)

// app holds everything a command needs. Close releases it.
type app struct {
	conf     *configuration.Configuration
	logger   *logrus.Logger
	pool     *pgxpool.Pool
	store    objectstore.Store
	repos    services.Repositories
	opts     services.Options
	shutdown func()
}

func connectDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "db connect failed")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "db ping failed")
	}
	return pool, nil
}

func loadConfig() (*configuration.Configuration, *logrus.Logger, error) {
	conf, err := configuration.Load()
	if err != nil {
		return nil, nil, withCode(exitUsage, errors.Wrap(err, "load configuration"))
	}
	logger := conf.Logger()
	if logger == nil {
		logger = logging.ConsoleLogger(conf.LogrusLogLevel())
	}
	return conf, logger, nil
}

// newApp loads configuration, connects to PostgreSQL and opens the object store.
// The returned context carries the pool for the repositories.
func newApp(ctx context.Context) (*app, context.Context, error) {
	conf, logger, err := loadConfig()
	if err != nil {
		return nil, ctx, err
	}

	a := &app{conf: conf, logger: logger, shutdown: func() {}}
	if conf.OpenTelemetry.Enabled {
		a.shutdown = logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
	}

	pool, err := connectDB(ctx, conf.Database.Opts)
	if err != nil {
		a.Close()
		return nil, ctx, withCode(exitDB, err)
	}
	a.pool = pool

	store, err := objectstore.New(ctx, conf.Storage)
	if err != nil {
		a.Close()
		return nil, ctx, withCode(exitStorage, err)
	}
	a.store = store

	a.repos = services.Repositories{
		Extracts:       persistence.NewExtractRepository(),
		LoadItems:      persistence.NewLoadItemRepository(),
		StagedItems:    persistence.NewStagedItemRepository(),
		Establishments: persistence.NewEstablishmentRepository(),
		Employments:    persistence.NewEmploymentRepository(),
	}
	a.opts = services.Options{Logger: logrus.NewEntry(logger)}

	return a, composables.WithPool(ctx, pool), nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	a.shutdown()
	a.conf.Unload()
}

func (a *app) pipeline() (*services.Pipeline, error) {
	return services.NewPipeline(a.repos, a.store, services.PipelineConfig{
		InboundPrefix:   a.conf.Storage.InboundPrefix,
		ProcessedPrefix: a.conf.Storage.ProcessedPrefix,
	}, a.opts)
}

func (a *app) maintenance() *services.MaintenanceService {
	return services.NewMaintenanceService(a.repos.Establishments, a.repos.Employments, a.opts)
}

func (a *app) exporter() *services.ExportService {
	return services.NewExportService(a.repos.Employments, a.store, a.conf.Storage.ExportPrefix, a.opts)
}

func (a *app) reports() *services.ReportService {
	return services.NewReportService(a.repos.Extracts, a.repos.LoadItems, a.repos.StagedItems, a.opts)
}

// withApp runs fn with a connected app and closes it afterwards.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, ctx, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// withPipeline is withApp for commands that drive per extract stages.
func withPipeline(ctx context.Context, fn func(ctx context.Context, p *services.Pipeline) error) error {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		p, err := a.pipeline()
		if err != nil {
			return withCode(exitUsage, err)
		}
		return fn(ctx, p)
	})
}
