package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	corecfg "github.com/pulsegrid-lab/pulsegrid/internal/core/config"
	"github.com/pulsegrid-lab/pulsegrid/internal/core/storage"
	"github.com/pulsegrid-lab/pulsegrid/internal/core/storage/postgres"
	"github.com/pulsegrid-lab/pulsegrid/internal/ingestion"
	"github.com/pulsegrid-lab/pulsegrid/internal/migrations"
	"github.com/pulsegrid-lab/pulsegrid/internal/pipeline"
	"github.com/pulsegrid-lab/pulsegrid/internal/query"
	"github.com/pulsegrid-lab/pulsegrid/internal/server"
)

func main() {
	configPath := flag.String("config", "pulsegrid.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration (includes series definitions)
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"series_count", len(cfg.SeriesLoading.Series),
		"database", cfg.Database.Type,
	)

	flushInterval, err := time.ParseDuration(cfg.Scheduler.EffectiveFlushInterval())
	if err != nil {
		slog.Error("Invalid flush interval", "value", cfg.Scheduler.EffectiveFlushInterval(), "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage
	var store storage.AggregateStore
	var dbAdapter *postgres.Adapter

	switch cfg.Database.Type {
	case "postgres":
		dbAdapter, err = postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		// 2.1. Run Database Migrations
		if err := migrations.Run(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		if err := dbAdapter.ValidateSchema(); err != nil {
			slog.Error("Schema validation failed", "error", err)
			os.Exit(1)
		}

		store = postgres.NewAggregateAdapter(dbAdapter.DB())
	case "memory":
		store = storage.NewMemoryStore()
	default:
		slog.Error("Unsupported database type", "type", cfg.Database.Type)
		os.Exit(1)
	}

	// 3. Initialize Pipeline (one resampler per series)
	engine, err := pipeline.NewEngine(cfg.SeriesLoading.Series, store, nil)
	if err != nil {
		slog.Error("Failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	scheduler := pipeline.NewScheduler(flushInterval, engine)

	slog.Info("Pipeline initialized",
		"flush_interval", flushInterval,
		"series_count", len(cfg.SeriesLoading.Series),
	)

	// 4. Initialize Ingestion (write side)
	ingestionSvc := ingestion.NewService(engine, cfg.Server.MaxBodySizeMB)

	// 5. Initialize Query (read side)
	querySvc := query.NewService(store, cfg.SeriesLoading.Series)

	// 6. Initialize Server
	var healthDB *sql.DB
	if dbAdapter != nil {
		healthDB = dbAdapter.DB()
	}
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), healthDB, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	querySvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Start(gctx)
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
