package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/leadgen-dispatch/cmd/mainconfig"
	"github.com/wolfman30/leadgen-dispatch/internal/api/router"
	"github.com/wolfman30/leadgen-dispatch/internal/app/bootstrap"
	"github.com/wolfman30/leadgen-dispatch/internal/channels"
	appconfig "github.com/wolfman30/leadgen-dispatch/internal/config"
	"github.com/wolfman30/leadgen-dispatch/internal/http/handlers"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadgen dispatch API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	pool, sqlDB, err := bootstrap.OpenDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	defer func() { _ = sqlDB.Close() }()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

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
	reg := prometheus.DefaultRegisterer
	dispatcher := bootstrap.BuildDispatcher(cfg, stores, senders, redisClient, reg, logger)
	triageService := bootstrap.BuildTriageService(cfg, stores, senders, reg, logger)

	r := router.New(&router.Config{
		Logger:           logger,
		Dispatch:         handlers.NewDispatchHandler(dispatcher, logger),
		ErrorLog:         handlers.NewErrorLogHandler(stores.Errors, logger),
		Triage:           handlers.NewTriageHandler(triageService, logger),
		AuthJWTSecret:    cfg.AuthJWTSecret,
		MetricsHandler:   promhttp.Handler(),
		HealthDependency: pool,
	})

	// Dispatch runs are paced, so the write timeout stays generous.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
