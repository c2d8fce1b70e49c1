// Package app assembles the scheduling service from configuration. The API
// server and the reconcile worker share it so that both see the same
// stores.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/catalog"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

type Backends struct {
	PgPool  *pgxpool.Pool // nil unless a backend uses Postgres
	Redis   *redis.Client // nil unless the index lives in Redis
	Doctors catalog.Catalog
	Slots   *catalog.SlotCatalog
	Index   availability.Index
	Service *appointment.Service
	Metrics *metrics.Metrics
}

// Open connects whatever cfg asks for and builds the service on top.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.NeedsPostgres() {
		if cfg.MigrateOnStart {
			if err := db.MigrateUp(cfg.PostgresDSN); err != nil {
				return nil, err
			}
			logger.Info().Msg("migrations applied")
		}

		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		b.PgPool = pool
		logger.Info().Msg("connected to Postgres")
	}

	var locker availability.Locker
	switch cfg.IndexBackend {
	case config.BackendRedis:
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("redis connection: %w", err)
		}
		b.Redis = rdb
		b.Index = redisclient.NewRedisIndex(rdb)
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL, cfg.LockRetries, cfg.LockRetryDelay)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	default:
		b.Index = availability.NewMemoryIndex()
		locker = availability.NewMemoryLocker()
	}

	switch cfg.CatalogSource {
	case config.BackendPostgres:
		b.Doctors = catalog.NewPgCatalog(b.PgPool)
	default:
		b.Doctors = catalog.NewStaticCatalog(catalog.DefaultDoctors())
	}

	var repo appointment.Repository
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		repo = appointment.NewPgRepository(b.PgPool)
	default:
		repo = appointment.NewMemoryRepository()
	}

	b.Metrics = metrics.New(prometheus.NewRegistry())
	b.Slots = catalog.NewSlotCatalog(b.Doctors, cfg.ClinicLocation, cfg.SlotSearchMaxDays, nil)
	b.Service = appointment.NewService(appointment.ServiceConfig{
		Repo:             repo,
		Doctors:          b.Doctors,
		Index:            b.Index,
		Locker:           locker,
		Location:         cfg.ClinicLocation,
		DashboardNearest: cfg.DashboardNearest,
		Metrics:          b.Metrics,
		Logger:           logger,
	})

	logger.Info().
		Str("store", cfg.StoreBackend).
		Str("index", cfg.IndexBackend).
		Str("catalog", cfg.CatalogSource).
		Msg("backends ready")
	return b, nil
}

func (b *Backends) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.PgPool != nil {
		b.PgPool.Close()
	}
}
