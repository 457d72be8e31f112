// Package http is the thin HTTP surface of the ingestion daemon: health,
// last-run results, and a trigger endpoint an external scheduler calls on
// its monthly cadence.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"indexcli/pkg/contracts/domain"
)

// IngestService is the surface the handlers need from the application.
type IngestService interface {
	Families() []string
	RunFamily(ctx context.Context, id string) (*domain.IngestionResult, error)
	LastResults() []*domain.IngestionResult
}

// IngestHandler serves the ingestion API.
type IngestHandler struct {
	service IngestService
	logger  *slog.Logger
}

// NewIngestHandler creates the handler.
func NewIngestHandler(service IngestService, logger *slog.Logger) *IngestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "ingest")),
	}
}

// Health handles GET /healthz.
func (h *IngestHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"families": h.service.Families(),
	})
}

// Results handles GET /api/results.
func (h *IngestHandler) Results(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.LastResults())
}

// Trigger handles POST /api/ingest/{family}. The run executes in the
// background; an already-active family makes the trigger a no-op there
// as well, so repeated scheduler fires are harmless.
func (h *IngestHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "family")

	known := false
	for _, f := range h.service.Families() {
		if f == id {
			known = true
			break
		}
	}
	if !known {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]any{"error": "unknown index family: " + id})
		return
	}

	go func() {
		if _, err := h.service.RunFamily(context.Background(), id); err != nil {
			h.logger.Error("triggered run failed",
				slog.String("family", id),
				slog.String("error", err.Error()))
		}
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]any{"family": id, "status": "accepted"})
}
