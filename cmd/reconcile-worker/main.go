package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("reconcile-worker", "dev", "info")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("reconcile-worker", cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("reconcile-worker starting up")

	if cfg.IndexBackend == config.BackendMemory || cfg.StoreBackend == config.BackendMemory {
		logger.Fatal().Msg("reconcile-worker needs shared stores; memory backends live inside the api-server")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.Open(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("backend setup error")
	}
	defer backends.Close()

	// Run once at startup
	runOnce(rootCtx, backends.Service, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reconcile worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, backends.Service, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	report, err := svc.ReconcileHolds(runCtx)
	if err != nil {
		logger.Error().Err(err).Msg("reconcile run error")
		return
	}
	logger.Info().
		Int("reheld", report.Reheld).
		Int("released", report.Released).
		Int("failed", report.Failed).
		Dur("took", time.Since(start)).
		Msg("reconcile run complete")
}
