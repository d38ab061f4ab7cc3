package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	importapp "github.com/erp/lotledger/internal/application/import"
	"github.com/erp/lotledger/internal/bootstrap"
	"github.com/erp/lotledger/internal/domain/bulk"
	"github.com/erp/lotledger/internal/infrastructure/config"
	csvimport "github.com/erp/lotledger/internal/infrastructure/import"
	"github.com/erp/lotledger/internal/infrastructure/logger"
)

func main() {
	var (
		file     string
		batchID  string
		actor    string
		logLevel string
	)
	flag.StringVar(&file, "file", "", "CSV or XLSX file to import (required)")
	flag.StringVar(&batchID, "batch", "", "Batch id; rerunning the same batch skips rows already applied")
	flag.StringVar(&actor, "actor", "cli", "Actor recorded on the import run")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: import -file <rows.csv|rows.xlsx> [-batch id] [-actor name]")
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	if err := run(log, file, batchID, actor); err != nil {
		log.Error("Import failed", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
}

func run(log *zap.Logger, file, batchID, actor string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	format, err := csvimport.DetectFormat(file)
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := importapp.ReadRows(format, f, cfg.Import.MaxRows)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, log)
	defer func() {
		if app != nil {
			if cerr := app.Close(context.Background()); cerr != nil {
				log.Warn("Error releasing resources", zap.Error(cerr))
			}
		}
	}()
	if err != nil {
		return err
	}

	source := bulk.ImportSourceCSV
	if format == csvimport.FormatXLSX {
		source = bulk.ImportSourceXLSX
	}
	summary, err := app.Reconciler.Run(ctx, importapp.Batch{
		ID:        batchID,
		Source:    source,
		FileName:  filepath.Base(file),
		StartedBy: actor,
		Rows:      rows,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
