// Package handlers provides HTTP handlers for the ingestion engine's
// operational endpoint.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/registralia/borme-engine/internal/ingest"
	"github.com/registralia/borme-engine/internal/observability"
	"github.com/registralia/borme-engine/internal/storage"
	"github.com/registralia/borme-engine/pkg/engine"
)

// defaultJobLimit caps the job log page when the caller passes none.
const defaultJobLimit = 20

// IngestionHandler serves the run trigger and status surface.
type IngestionHandler struct {
	logger *observability.Logger
	engine *engine.Engine
}

// NewIngestionHandler creates an ingestion handler.
func NewIngestionHandler(logger *observability.Logger, eng *engine.Engine) *IngestionHandler {
	return &IngestionHandler{
		logger: logger,
		engine: eng,
	}
}

// TriggerRequestDTO is the request body for a range trigger.
type TriggerRequestDTO struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// JobsResponseDTO wraps a page of job log rows.
type JobsResponseDTO struct {
	Jobs  []*storage.IngestionJob `json:"jobs"`
	Count int                     `json:"count"`
}

// TriggerRange handles POST /api/v1/ingestion/trigger.
func (h *IngestionHandler) TriggerRange(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.DateFrom == "" || req.DateTo == "" {
		h.writeError(w, http.StatusBadRequest, "date_from and date_to are required", "")
		return
	}

	res := h.engine.TriggerRange(req.DateFrom, req.DateTo)
	if !res.Started {
		h.writeJSON(w, refusalStatus(res), res)
		return
	}

	h.logger.Info().
		Str("date_from", req.DateFrom).
		Str("date_to", req.DateTo).
		Msg("Range ingestion triggered")
	h.writeJSON(w, http.StatusAccepted, res)
}

// TriggerDate handles POST /api/v1/ingestion/trigger/{date}.
func (h *IngestionHandler) TriggerDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	res := h.engine.TriggerDate(date)
	if !res.Started {
		h.writeJSON(w, refusalStatus(res), res)
		return
	}

	h.logger.Info().Str("gazette_date", date).Msg("Date ingestion triggered")
	h.writeJSON(w, http.StatusAccepted, res)
}

// Status handles GET /api/v1/ingestion/status.
func (h *IngestionHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Status())
}

// Jobs handles GET /api/v1/ingestion/jobs.
func (h *IngestionHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = parsed
	}

	jobs, err := h.engine.RecentJobs(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Job log query failed")
		h.writeError(w, http.StatusInternalServerError, "job log query failed", "")
		return
	}
	h.writeJSON(w, http.StatusOK, JobsResponseDTO{Jobs: jobs, Count: len(jobs)})
}

// refusalStatus maps a refused trigger to its response status: busy engine
// is a conflict, anything else is a bad request.
func refusalStatus(res ingest.TriggerResult) int {
	if res.Reason == ingest.ErrAlreadyRunning.Error() {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func (h *IngestionHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *IngestionHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	h.writeJSON(w, status, resp)
}
