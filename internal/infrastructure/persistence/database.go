package persistence

import (
	"fmt"
	"time"

	"github.com/erp/lotledger/internal/domain/bulk"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/ledger"
	"github.com/erp/lotledger/internal/infrastructure/config"
	zaplog "github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB     *gorm.DB
	Driver string
}

// Options tune how a connection is opened
type Options struct {
	Logger        *zap.Logger
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
	// TraceQueries registers the otelgorm plugin so every statement gets a span
	TraceQueries bool
	// AutoMigrate creates the schema from the entity definitions. Postgres
	// deployments use the SQL migrations instead.
	AutoMigrate bool
}

// Open connects to the database named by cfg.Driver (postgres or sqlite)
func Open(cfg *config.DatabaseConfig, opts Options) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres, "":
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if opts.Logger != nil {
		gormLogger = zaplog.NewGormLogger(opts.Logger, opts.LogLevel, zaplog.WithSlowThreshold(opts.SlowThreshold))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.TraceQueries {
		if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.DBName), otelgorm.WithoutQueryVariables())); err != nil {
			return nil, fmt.Errorf("failed to register query tracing: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// One connection keeps transactions serialized and :memory: databases shared
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Database{DB: db, Driver: cfg.Driver}
	if opts.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// AutoMigrate creates or updates every ledger table
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&ledger.Lot{},
		&ledger.LedgerEvent{},
		&catalog.Sku{},
		&catalog.Variance{},
		&catalog.Note{},
		&bulk.ImportRun{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
