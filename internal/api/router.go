package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bunpmc/clinic-scheduling/internal/booking"
)

type RouterConfig struct {
	Service         *booking.Service
	PgPool          *pgxpool.Pool
	Redis           *redis.Client
	Logger          zerolog.Logger
	Env             string
	Version         string
	DefaultPageSize int
	MaxPageSize     int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Unified list and creation
	r.Get("/appointments", listAppointmentsHandler(cfg.Service, cfg.DefaultPageSize, cfg.MaxPageSize))
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Post("/guest-appointments", createGuestAppointmentHandler(cfg.Service))

	// Mutations route through the explicit (kind, id) pair; the synthetic
	// unified id is never a lookup key.
	r.Post("/appointments/{kind}/{id}/approve", approveAppointmentHandler(cfg.Service))
	r.Post("/appointments/{kind}/{id}/reject", rejectAppointmentHandler(cfg.Service))
	r.Patch("/appointments/{kind}/{id}", updateAppointmentHandler(cfg.Service))
	r.Delete("/appointments/{kind}/{id}", deleteAppointmentHandler(cfg.Service))

	// Bulk operations
	r.Post("/appointments/bulk/status", bulkStatusHandler(cfg.Service))
	r.Post("/appointments/bulk/delete", bulkDeleteHandler(cfg.Service))

	// Chart feeds
	r.Get("/stats/status-breakdown", statusBreakdownHandler(cfg.Service))
	r.Get("/stats/visit-type-breakdown", visitTypeBreakdownHandler(cfg.Service))

	return r
}
