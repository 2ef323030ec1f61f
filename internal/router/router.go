// Package router sets up all HTTP routes and middleware chains for the
// market planner category engine. Every route speaks JSON; tenancy comes
// from the X-Tenant-ID header rather than the URL.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MaddisonM79/market-planner/internal/handlers"
	"github.com/MaddisonM79/market-planner/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(categories *handlers.Categories, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	// Health check — no rate limiting.
	r.Get("/health", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", categories.Create)
			r.Get("/search", categories.Search)
			r.Post("/batch-move", categories.BatchMove)
			r.Post("/{id}/move", categories.Move)
			r.Get("/{id}/deletion-impact", categories.DeletionImpact)
			r.Delete("/{id}", categories.Delete)
		})

		r.Get("/category-tree", categories.Tree)

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/refresh-paths", categories.RefreshPaths)
			r.Post("/run", categories.RunMaintenance)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
