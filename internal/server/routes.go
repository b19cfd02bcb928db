// Package server wires HTTP handlers into a chi router for the relay.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRoutes configures and returns the application router. metrics is
// mounted at /metrics when non-nil.
func SetupRoutes(h *Handlers, metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Health)
	r.Get("/healthz", h.Healthz)
	r.Get("/ws", h.WebSocket)
	r.Get("/test", h.TestPage)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}
