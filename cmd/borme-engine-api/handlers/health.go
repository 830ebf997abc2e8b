package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/registralia/borme-engine/internal/observability"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	logger *observability.Logger
	db     *sql.DB
}

// NewHealthHandler creates a health handler over the engine's database
// connection.
func NewHealthHandler(logger *observability.Logger, db *sql.DB) *HealthHandler {
	return &HealthHandler{logger: logger, db: db}
}

// HealthResponseDTO is the probe response body.
type HealthResponseDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Healthz handles GET /healthz: a database ping decides readiness.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponseDTO{Status: "ok", Database: "up"}
	status := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Health check database ping failed")
		resp = HealthResponseDTO{Status: "degraded", Database: "down"}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
