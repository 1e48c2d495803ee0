package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	appLogger "github.com/FACorreiaa/go-admin-console/app/logger"
	"github.com/FACorreiaa/go-admin-console/app/observability/metrics"
	"github.com/FACorreiaa/go-admin-console/app/tracer"
	"github.com/FACorreiaa/go-admin-console/config"
	"github.com/FACorreiaa/go-admin-console/internal/container"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Initial Loading ---
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	// --- Logger Setup ---
	logger := appLogger.SetupLogger(cfg.IsDevelopment())
	slog.SetDefault(logger)

	// --- Application Context & Shutdown ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	metricsHandler, shutdownTelemetry, err := tracer.InitTracingAndMetrics("admin-console")
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.InitAppMetrics(logger)

	// --- Dependency Injection ---
	c, err := container.NewContainer(ctx, &cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize container", slog.Any("error", err))
		os.Exit(1)
	}
	defer c.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      c.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.Metrics.Port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server",
			slog.String("address", srv.Addr),
			slog.String("api_base_url", cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		err := srv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			err = errors.Join(err, metricsSrv.Shutdown(shutdownCtx))
		}
		return errors.Join(err, shutdownTelemetry(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		logger.Error("Console stopped with error", slog.Any("error", err))
		c.Close()
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}
