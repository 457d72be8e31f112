package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the daemon's routes.
func NewRouter(service IngestService, logger *slog.Logger) chi.Router {
	h := NewIngestHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/results", h.Results)
		r.Post("/ingest/{family}", h.Trigger)
	})
	return r
}
