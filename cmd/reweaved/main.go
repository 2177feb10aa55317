// Package main provides the reweave background worker daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/reweave-go/internal/config"
	"github.com/raphaelgruber/reweave-go/internal/db"
	"github.com/raphaelgruber/reweave-go/internal/llm"
	"github.com/raphaelgruber/reweave-go/internal/metrics"
	"github.com/raphaelgruber/reweave-go/internal/ops"
	"github.com/raphaelgruber/reweave-go/internal/service"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()

	slog.Info("starting reweaved",
		"poll_interval", cfg.WorkerPollInterval,
		"stale_threshold", cfg.StaleJobThreshold)

	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := db.NewClient(ctx, dbCfg, logger)
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	if err := client.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	cancel()

	if *wipeDB || os.Getenv("REWEAVE_WIPE_DB") == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := client.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
		cancel()
	}

	// The LLM provider is optional: without one, only the deterministic
	// operations (detect, format) are available.
	model, err := llm.NewModel(cfg)
	if err != nil {
		slog.Warn("LLM provider unavailable, generative operations disabled", "error", err)
		model = nil
	}

	registry := ops.DefaultRegistry(model)
	collector := metrics.NewCollector()
	lineage := service.NewLineageService(client, logger)
	processor := service.NewProcessor(client, registry, lineage, collector, logger)
	worker := service.NewWorker(client, processor, cfg.WorkerPollInterval, cfg.StaleJobThreshold, logger)

	slog.Info("operations registered", "operations", registry.Operations())

	// Run until interrupted
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}

	snap := collector.Snapshot()
	slog.Info("worker stopped",
		"uptime_seconds", snap.UptimeSeconds,
		"operations_executed", len(snap.Operations))
}
