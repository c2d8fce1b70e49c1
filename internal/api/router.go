package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/catalog"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

type RouterConfig struct {
	Service     *appointment.Service
	Doctors     catalog.Catalog
	Slots       *catalog.SlotCatalog
	Index       availability.Index
	Verifier    *auth.Verifier
	OperatorKey string

	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Liveness)

		r.Get("/doctors", listDoctorsHandler(cfg.Doctors))
		r.Get("/doctors/{id}", getDoctorHandler(cfg.Doctors))
		r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Slots, cfg.Index, cfg.Logger))

		r.With(OperatorMiddleware(cfg.OperatorKey)).
			Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))

		r.Group(func(r chi.Router) {
			r.Use(cfg.Verifier.Middleware(writeAuthError))

			r.Post("/appointments", createAppointmentHandler(cfg.Service))
			r.Get("/appointments", listAppointmentsHandler(cfg.Service))
			r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
			r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Service))
			r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))

			r.Get("/dashboard/stats", dashboardHandler(cfg.Service))
		})
	})

	return r
}
