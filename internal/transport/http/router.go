// Package httptransport is the thin HTTP layer over the security services.
// Handlers delegate to services and translate domain errors into the JSON
// rejection envelope; they hold no security logic of their own.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sanctum/pkg/platform/httputil"
	"sanctum/pkg/platform/middleware/request"
	"sanctum/pkg/requestcontext"
)

const (
	requestTimeout = 30 * time.Second
	healthTimeout  = 2 * time.Second
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type routerConfig struct {
	gatherer prometheus.Gatherer
	checks   map[string]HealthCheck
}

type RouterOption func(*routerConfig)

// WithMetricsGatherer exposes the gatherer's metrics on /metrics.
func WithMetricsGatherer(g prometheus.Gatherer) RouterOption {
	return func(c *routerConfig) { c.gatherer = g }
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) RouterOption {
	return func(c *routerConfig) { c.checks[name] = check }
}

// NewRouter wires the public endpoints. Request metadata is pinned before any
// route runs, so every stage sees the same time and request ID.
func NewRouter(logger *slog.Logger, registrars []Registrar, opts ...RouterOption) http.Handler {
	cfg := &routerConfig{gatherer: prometheus.DefaultGatherer, checks: map[string]HealthCheck{}}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(accessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/healthz", healthHandler(cfg.checks, logger))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))

	for _, reg := range registrars {
		reg.Register(r)
	}
	return r
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				status[name] = "unavailable"
				healthy = false
				continue
			}
			status[name] = "ok"
		}

		code := http.StatusOK
		overall := "ok"
		if !healthy {
			code = http.StatusServiceUnavailable
			overall = "degraded"
		}
		httputil.WriteJSON(w, code, map[string]any{"status": overall, "checks": status})
	}
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request completed",
				"request_id", requestcontext.RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
