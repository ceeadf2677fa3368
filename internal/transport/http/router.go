// Package httptransport assembles the public HTTP surface: middleware
// chain, participant and organizer routes, health, and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cathandler "entrant/internal/catalog/handler"
	"entrant/internal/platform/middleware"
	reghandler "entrant/internal/registration/handler"
	"entrant/pkg/platform/httputil"
)

// HealthChecker reports the liveness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a plain ping function to HealthChecker.
type HealthFunc func(ctx context.Context) error

func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// Deps carries everything the router mounts.
type Deps struct {
	Registrations *reghandler.Handler
	Catalog       *cathandler.Handler
	Auth          middleware.TokenValidator
	// RateLimit guards the authenticated surface when set.
	RateLimit *middleware.RateLimiter
	Logger    *slog.Logger
	// Health maps a dependency name to its checker. Nil checkers are
	// skipped so optional dependencies (Redis) degrade gracefully.
	Health map[string]HealthChecker
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)

	r.Get("/healthz", handleHealth(deps))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Auth, deps.Logger))
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}
		deps.Registrations.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireGateway(deps.Logger))
			deps.Registrations.RegisterGateway(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOrganizer(deps.Logger))
			deps.Catalog.Register(r)
			deps.Registrations.RegisterOrganizer(r)
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(deps.Health))}
		status := http.StatusOK
		for name, checker := range deps.Health {
			if checker == nil {
				continue
			}
			if err := checker.Health(ctx); err != nil {
				deps.Logger.ErrorContext(ctx, "health check failed", "dependency", name, "error", err)
				resp.Checks[name] = "unhealthy"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
