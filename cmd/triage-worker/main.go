package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/leadgen-dispatch/cmd/mainconfig"
	"github.com/wolfman30/leadgen-dispatch/internal/app/bootstrap"
	"github.com/wolfman30/leadgen-dispatch/internal/channels"
	appconfig "github.com/wolfman30/leadgen-dispatch/internal/config"
	"github.com/wolfman30/leadgen-dispatch/internal/triage"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).With("component", "triage-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, sqlDB, err := bootstrap.OpenDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	defer func() { _ = sqlDB.Close() }()

	var ses channels.SESAPI
	sesClient, err := mainconfig.SESClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	if sesClient != nil {
		ses = sesClient
	}

	stores := bootstrap.PostgresStores(pool, sqlDB)
	senders := bootstrap.BuildSenders(cfg, ses, logger)
	service := bootstrap.BuildTriageService(cfg, stores, senders, prometheus.DefaultRegisterer, logger)

	logger.Info("triage worker started", "interval", cfg.TriagePollInterval, "batch_size", cfg.TriageBatchSize)
	triage.NewWorker(service, logger).WithInterval(cfg.TriagePollInterval).Run(ctx)
	logger.Info("triage worker stopped")
}
