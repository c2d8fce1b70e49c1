package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("api-server", "dev", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("api-server", cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.Open(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("backend setup error")
	}
	defer backends.Close()

	// Rebuild holds before taking traffic; an in-memory index starts empty.
	reconcileCtx, cancelReconcile := context.WithTimeout(rootCtx, 30*time.Second)
	report, err := backends.Service.ReconcileHolds(reconcileCtx)
	cancelReconcile()
	if err != nil {
		logger.Fatal().Err(err).Msg("startup reconciliation failed")
	}
	logger.Info().
		Int("reheld", report.Reheld).
		Int("released", report.Released).
		Int("failed", report.Failed).
		Msg("startup reconciliation complete")

	router := api.NewRouter(api.RouterConfig{
		Service:     backends.Service,
		Doctors:     backends.Doctors,
		Slots:       backends.Slots,
		Index:       backends.Index,
		Verifier:    auth.NewVerifier(cfg.JWTSecret),
		OperatorKey: cfg.OperatorAPIKey,
		Metrics:     backends.Metrics,
		Logger:      logger,
		PgPool:      backends.PgPool,
		Redis:       backends.Redis,
		Env:         cfg.Env,
		Version:     version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server error")
			backends.Close()
			os.Exit(1)
		}
	case <-rootCtx.Done():
	}

	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
