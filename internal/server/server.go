// Package server implements the HTTP transport layer for the pantry gateway.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telliott/pantry/internal/app"
	"github.com/telliott/pantry/internal/cache"
	"github.com/telliott/pantry/internal/source"
	"github.com/telliott/pantry/internal/storage"
	"github.com/telliott/pantry/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Search     *app.SearchService
	Cache      cache.Cache          // needed for admin purge; nil disables the endpoint
	Store      storage.SearchStore  // needed for /v1/stats; nil disables the endpoint
	Source     source.Source        // checked by /readyz when non-nil
	ReadyCheck ReadyChecker         // nil = always ready (for tests)
	Metrics    *telemetry.Metrics   // nil = no metrics collection
	Registry   *prometheus.Registry // nil = no /metrics endpoint
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Search API
	r.Get("/v1/recipes/search", s.handleSearch)
	if deps.Store != nil {
		r.Get("/v1/stats", s.handleStats)
	}

	// Admin
	if deps.Cache != nil {
		r.Delete("/admin/cache", s.handlePurgeCache)
	}

	return r
}

type server struct {
	deps Deps
}
