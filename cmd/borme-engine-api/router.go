// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/registralia/borme-engine/cmd/borme-engine-api/handlers"
	"github.com/registralia/borme-engine/internal/observability"
	"github.com/registralia/borme-engine/pkg/engine"
)

// NewRouter creates the operational API router. A nil logger disables
// handler logging.
func NewRouter(logger *observability.Logger, eng *engine.Engine, requestTimeout time.Duration) http.Handler {
	if logger == nil {
		logger = observability.Nop()
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	healthHandler := handlers.NewHealthHandler(logger, eng.DB())
	ingestionHandler := handlers.NewIngestionHandler(logger, eng)

	r.Get("/healthz", healthHandler.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/ingestion", func(r chi.Router) {
			r.Post("/trigger", ingestionHandler.TriggerRange)
			r.Post("/trigger/{date}", ingestionHandler.TriggerDate)
			r.Get("/status", ingestionHandler.Status)
			r.Get("/jobs", ingestionHandler.Jobs)
		})
	})

	return r
}
