package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/activity"
	"github.com/frahmantamala/habilitation-management/internal/auth"
	"github.com/frahmantamala/habilitation-management/internal/ratelimit"
	"github.com/frahmantamala/habilitation-management/internal/transport"
	"github.com/frahmantamala/habilitation-management/internal/transport/middleware"
	"github.com/frahmantamala/habilitation-management/internal/transport/swagger"
	"github.com/frahmantamala/habilitation-management/internal/user"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Base      *transport.BaseHandler
	Auth      *auth.Handler
	Gate      *auth.Gate
	User      *user.Handler
	Activity  *activity.Handler
	Health    *HealthHandler
	Sensitive *ratelimit.SensitiveLimiter
}

// RegisterAllRoutes mounts the API under /api/v1. Auth routes sit behind the
// general per-IP throttle; login additionally behind the sensitive-operation
// limiter. Activity reads are gated to admin and manager roles.
func RegisterAllRoutes(router *chi.Mux, h Handlers, cfg *internal.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			ar.Use(middleware.PerIPRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

			ar.Group(func(lr chi.Router) {
				lr.Use(h.Auth.OptionalAuthenticate)
				lr.Use(h.Sensitive.Middleware(h.Base))
				lr.Post("/login", h.Auth.Login)
			})
			ar.Post("/refresh-token", h.Auth.RefreshToken)
			ar.Post("/logout", h.Auth.Logout)

			ar.Group(func(pr chi.Router) {
				pr.Use(h.Auth.Authenticate)
				pr.Get("/profile", h.Auth.Profile)
			})
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.Authenticate)

			pr.Get("/users/me", h.User.GetCurrentUser)

			pr.Group(func(admin chi.Router) {
				admin.Use(h.Gate.Authorize(auth.RoleAdmin))
				admin.Get("/permissions", h.User.ListPermissions)
			})

			pr.Route("/activity", func(actr chi.Router) {
				actr.Group(func(mr chi.Router) {
					mr.Use(h.Gate.Authorize(auth.RoleAdmin, auth.RoleManager))
					mr.Get("/", h.Activity.List)
					mr.Get("/summary", h.Activity.Summary)
					mr.Get("/trends", h.Activity.Trends)
					mr.Get("/security-alerts", h.Activity.SecurityAlerts)
					mr.Get("/suspicious", h.Activity.Suspicious)
					mr.Get("/failed-logins", h.Activity.FailedLoginsByIP)
				})

				actr.Group(func(adr chi.Router) {
					adr.Use(h.Gate.Authorize(auth.RoleAdmin))
					adr.Get("/export", h.Activity.Export)
				})

				actr.Group(func(cr chi.Router) {
					cr.Use(h.Gate.Authorize(auth.RoleAdmin))
					cr.Use(h.Gate.RequirePermission("system.maintenance"))
					cr.Post("/cleanup", h.Activity.Cleanup)
				})
			})
		})
	})
}
