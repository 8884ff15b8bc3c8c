package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/appointment"
	"github.com/hackgods/clinic-shift-scheduling/internal/metrics"
)

type RouterConfig struct {
	Service  *appointment.Service
	Postgres Pinger
	Redis    Pinger // nil when slot locks run without Redis
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger, cfg.Metrics))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	svc := cfg.Service

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(svc))
		r.Get("/{id}", getAppointmentHandler(svc))
		r.Patch("/{id}", updateAppointmentHandler(svc))
		r.Post("/{id}/cancel", cancelAppointmentHandler(svc))
		r.Post("/{id}/attend", attendAppointmentHandler(svc))
	})

	r.Post("/specialties", createSpecialtyHandler(svc))
	r.Post("/patients", registerPatientHandler(svc))

	r.Route("/doctors", func(r chi.Router) {
		r.Post("/", registerDoctorHandler(svc))
		r.Get("/{id}/slots", doctorDaySlotsHandler(svc))
		r.Get("/{id}/slots/{n}", resolveSlotHandler(svc))
	})

	r.Route("/shifts", func(r chi.Router) {
		r.Post("/", createShiftHandler(svc))
		r.Patch("/{id}", updateShiftHandler(svc))
		r.Post("/{id}/deactivate", deactivateShiftHandler(svc))
		r.Get("/{id}/slots", shiftSlotsHandler(svc))
	})

	return r
}
