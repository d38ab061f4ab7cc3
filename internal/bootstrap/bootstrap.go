// Package bootstrap wires the ledger, its processors and their stores from
// configuration. cmd/server and cmd/import share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/lotledger/internal/application/audit"
	appcatalog "github.com/erp/lotledger/internal/application/catalog"
	"github.com/erp/lotledger/internal/application/fulfillment"
	importapp "github.com/erp/lotledger/internal/application/import"
	appledger "github.com/erp/lotledger/internal/application/ledger"
	"github.com/erp/lotledger/internal/application/manufacturing"
	"github.com/erp/lotledger/internal/application/receiving"
	"github.com/erp/lotledger/internal/domain/bulk"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/cache"
	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/erp/lotledger/internal/infrastructure/lock"
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/infrastructure/migration"
	"github.com/erp/lotledger/internal/infrastructure/persistence"
	"github.com/erp/lotledger/internal/infrastructure/persistence/memory"
	infrastrategy "github.com/erp/lotledger/internal/infrastructure/strategy"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping() error
}

// App holds everything built from one configuration
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Meters  *telemetry.MeterProvider
	Tracers *telemetry.TracerProvider
	Logs    *telemetry.LoggerProvider

	Ledger        *appledger.Ledger
	Catalog       *appcatalog.Service
	Receiving     *receiving.Service
	Audit         *audit.Service
	Manufacturing *manufacturing.Service
	Fulfillment   *fulfillment.Allocator
	Reconciler    *importapp.Reconciler
	ImportRuns    bulk.ImportRunRepository

	// Checks are probed by the health endpoint
	Checks map[string]Pinger

	closers []func(context.Context) error
}

type stores struct {
	ledger ledger.Store
	skus   catalog.SkuRepository
	notes  catalog.NoteRepository
	runs   bulk.ImportRunRepository
}

// Build opens stores and services for cfg. Close releases them even when
// Build fails part way.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: log, Checks: map[string]Pinger{}}

	if err := a.buildTelemetry(ctx); err != nil {
		return a, err
	}
	log = a.Logger

	st, err := a.buildStores(cfg, log)
	if err != nil {
		return a, err
	}

	locks, err := a.buildLocks(ctx, cfg, log)
	if err != nil {
		return a, err
	}

	keys, err := cache.NewKeyStore(ctx, cfg, log)
	if err != nil {
		return a, fmt.Errorf("processed-key store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return keys.Close() })

	metrics, err := telemetry.NewLedgerMetrics(a.Meters.Meter("lotledger"))
	if err != nil {
		return a, fmt.Errorf("ledger metrics: %w", err)
	}

	a.Ledger = appledger.NewLedger(st.ledger, locks, log,
		appledger.WithConfig(appledger.Config{
			MaxRetries:   cfg.Ledger.MaxRetries,
			RetryBackoff: cfg.Ledger.RetryBackoff,
		}),
		appledger.WithMetrics(metrics),
		appledger.WithCatalog(st.skus),
	)

	strategies := infrastrategy.NewRegistryWithDefaults()
	a.Catalog = appcatalog.NewService(st.skus, st.notes, a.Ledger, log)
	a.Receiving = receiving.NewService(a.Ledger, log)
	a.Audit = audit.NewService(a.Ledger, log)
	a.Manufacturing = manufacturing.NewService(a.Ledger, strategies, log)
	a.Fulfillment = fulfillment.NewAllocator(a.Ledger, strategies, log)
	a.ImportRuns = st.runs
	a.Reconciler = importapp.NewReconciler(importapp.Dependencies{
		Catalog:   a.Catalog,
		Receiving: a.Receiving,
		Audit:     a.Audit,
		Keys:      keys,
		Runs:      st.runs,
		Metrics:   metrics,
	}, importapp.Config{
		MaxErrors:       cfg.Import.MaxErrors,
		ProcessedKeyTTL: cfg.Import.ProcessedKeyTTL,
	}, log)

	return a, nil
}

func (a *App) buildTelemetry(ctx context.Context) error {
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(a.Config.Telemetry), a.Logger)
	if err != nil {
		return fmt.Errorf("meter provider: %w", err)
	}
	a.Meters = mp
	a.closers = append(a.closers, mp.Shutdown)

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfigFrom(a.Config.Telemetry), a.Logger)
	if err != nil {
		return fmt.Errorf("tracer provider: %w", err)
	}
	a.Tracers = tp
	a.closers = append(a.closers, tp.Shutdown)

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFrom(a.Config.Telemetry), a.Logger)
	if err != nil {
		return fmt.Errorf("logger provider: %w", err)
	}
	a.Logs = lp
	a.closers = append(a.closers, lp.Shutdown)
	a.Logger = lp.Bridge(a.Logger, logger.ParseLevel(a.Config.Log.Level))
	return nil
}

func (a *App) buildStores(cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory stores, nothing survives a restart")
		return &stores{
			ledger: memory.NewLedgerStore(),
			skus:   memory.NewSkuRepository(),
			notes:  memory.NewNoteRepository(),
			runs:   memory.NewImportRunRepository(),
		}, nil
	}

	postgres := cfg.Database.Driver == config.DriverPostgres || cfg.Database.Driver == ""
	if postgres {
		if err := migrateUp(&cfg.Database, log); err != nil {
			return nil, err
		}
	}

	db, err := persistence.Open(&cfg.Database, persistence.Options{
		Logger:        log,
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		TraceQueries:  cfg.Telemetry.DBTraceEnabled,
		AutoMigrate:   !postgres,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	a.Checks["database"] = db
	log.Info("database connected", zap.String("driver", db.Driver))

	return &stores{
		ledger: persistence.NewGormLedgerStore(db.DB),
		skus:   persistence.NewGormSkuRepository(db.DB),
		notes:  persistence.NewGormNoteRepository(db.DB),
		runs:   persistence.NewGormImportRunRepository(db.DB),
	}, nil
}

func migrateUp(cfg *config.DatabaseConfig, log *zap.Logger) error {
	m, err := migration.Open(cfg, "", log)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("failed to close migrator", zap.Error(err))
		}
	}()
	if err := m.Up(); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (a *App) buildLocks(ctx context.Context, cfg *config.Config, log *zap.Logger) (shared.LockManager, error) {
	switch cfg.Ledger.LockBackend {
	case config.LockBackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis lock backend: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		a.Checks["redis"] = pingerFunc(func() error { return client.Ping(context.Background()).Err() })
		log.Info("using Redis lot locks", zap.String("addr", cfg.Redis.Addr()))
		return lock.NewRedisManager(client, lock.RedisConfig{
			Prefix:  cfg.Ledger.LockPrefix,
			TTL:     cfg.Ledger.LockTTL,
			Timeout: cfg.Ledger.LockTimeout,
		}, log), nil
	case config.LockBackendLocal, "":
		return lock.NewLocalManager(cfg.Ledger.LockTimeout, log), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Ledger.LockBackend)
	}
}

type pingerFunc func() error

func (f pingerFunc) Ping() error { return f() }

// Close releases everything Build opened, newest first
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
