package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public — no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(g.metrics.registry, promhttp.HandlerOpts{}))

	// API — auth required when a token is configured.
	r.Group(func(r chi.Router) {
		if g.config.BearerToken != "" {
			r.Use(authMiddleware(g.config.BearerToken, g.logger))
		}
		r.Route("/api", func(r chi.Router) {
			r.Get("/tools", g.handleListTools())
			r.Post("/tools/{name}", g.handleInvokeTool())
			r.Post("/chat", g.handleChat())
		})
		r.Get("/ws/events", g.events.ServeHTTP)
	})

	return r
}
