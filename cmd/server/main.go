package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/lotledger/internal/bootstrap"
	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/interfaces/http/handler"
	"github.com/erp/lotledger/internal/interfaces/http/middleware"
	"github.com/erp/lotledger/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync(log)

	log.Info("Starting lot ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("locks", cfg.Ledger.LockBackend),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		closeApp(app, log)
		log.Fatal("Failed to build application", zap.Error(err))
	}
	log = app.Logger

	checks := make(map[string]handler.Pinger, len(app.Checks))
	for name, p := range app.Checks {
		checks[name] = p
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger: log,
		Meters: app.Meters,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     app.Tracers.IsEnabled(),
		},
		MaxBodySize: cfg.HTTP.MaxBodySize,
	}, router.Handlers{
		Operations: handler.NewOperationsHandler(app.Receiving, app.Audit, app.Manufacturing, app.Fulfillment),
		Lots:       handler.NewLotHandler(app.Ledger),
		Catalog:    handler.NewCatalogHandler(app.Catalog),
		Import:     handler.NewImportHandler(app.Reconciler, app.ImportRuns, cfg.Import.MaxRows),
		System:     handler.NewSystemHandler(cfg.App.Name, checks),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	closeApp(app, log)
	log.Info("Server exited gracefully")
}

func closeApp(app *bootstrap.App, log *zap.Logger) {
	if app == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		log.Warn("Error releasing resources", zap.Error(err))
	}
}
