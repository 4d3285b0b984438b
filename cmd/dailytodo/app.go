package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"daily-todo/internal/config"
	"daily-todo/internal/logger"
	"daily-todo/internal/model"
	"daily-todo/internal/repository"
	"daily-todo/internal/service"
	"daily-todo/internal/sheet"
)

const defaultLocalSheet = "Blad1"

// app holds what every command shares: config, logger and the task service
// over the configured store.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	tasks    *service.TaskService
	registry *prometheus.Registry
	closers  []func() error
}

func newApp(ctx context.Context, quiet bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	var log *logger.Logger
	if quiet {
		log = logger.Nop()
	} else if log, err = logger.New(cfg.Logger); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() error {
		// stdout cannot always be synced; that is not worth failing a command over.
		_ = log.Close()
		return nil
	})

	table, err := a.openTable(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		table = sheet.Instrument(table, sheet.NewMetrics(a.registry))
	}

	a.tasks = service.NewTaskService(table, log, service.WithLocation(loc))
	return a, nil
}

// openTable connects the configured backend.
func (a *app) openTable(ctx context.Context) (sheet.Table, error) {
	switch a.cfg.Store.Backend {
	case config.BackendSheets:
		table, err := sheet.NewGoogleTable(ctx, sheet.GoogleConfig{
			Spreadsheet:     a.cfg.Sheets.Spreadsheet,
			Worksheet:       a.cfg.Sheets.Worksheet,
			CredentialsFile: a.cfg.Sheets.CredentialsFile,
			CredentialsJSON: []byte(a.cfg.Sheets.CredentialsJSON),
		})
		if err != nil {
			return nil, fmt.Errorf("open spreadsheet: %w", err)
		}
		a.log.Infow("using google sheets store", "worksheet", table.Worksheet())
		return table, nil

	default:
		db, err := repository.NewDB(a.cfg.Database.URL, a.log)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}

		name := a.cfg.Sheets.Worksheet
		if name == "" {
			name = defaultLocalSheet
		}
		table := repository.NewCellTable(db, name)
		if err := table.EnsureHeader(ctx, model.Columns); err != nil {
			return nil, err
		}
		a.log.Infow("using sqlite store", "database", a.cfg.Database.URL, "worksheet", name)
		return table, nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
