package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registralia/borme-engine/cmd/borme-engine-api/handlers"
	"github.com/registralia/borme-engine/internal/config"
	"github.com/registralia/borme-engine/internal/ingest"
	"github.com/registralia/borme-engine/internal/storage"
	"github.com/registralia/borme-engine/pkg/engine"
)

// apiEnv runs the full router against a real engine backed by a temp SQLite
// database. The upstream gazette answers 404 for every date, so triggered
// runs complete as no-publication days without touching any document.
type apiEnv struct {
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *apiEnv {
	t.Helper()

	upstream := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(upstream.Close)

	cfg := config.DefaultConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "api.db")
	cfg.Cache.Driver = "memory"
	cfg.Source.BaseURL = upstream.URL
	cfg.Storage.DocumentRoot = filepath.Join(t.TempDir(), "docs")
	cfg.Ingestion.BatchPause = time.Millisecond
	cfg.Scheduler.Enabled = false
	cfg.Observability.LogLevel = "error"

	eng, err := engine.New(cfg, engine.Options{Migrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	srv := httptest.NewServer(NewRouter(nil, eng, 30*time.Second))
	t.Cleanup(srv.Close)
	return &apiEnv{srv: srv}
}

func (e *apiEnv) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *apiEnv) post(t *testing.T, path, body string, out any) int {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *apiEnv) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := http.Get(e.srv.URL + "/api/v1/ingestion/status")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var status ingest.RunStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return false
		}
		return !status.Running
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAPI_Healthz(t *testing.T) {
	env := newTestAPI(t)

	var health handlers.HealthResponseDTO
	code := env.get(t, "/healthz", &health)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "up", health.Database)
}

func TestAPI_TriggerDate_RunsToCompletion(t *testing.T) {
	env := newTestAPI(t)

	var res ingest.TriggerResult
	code := env.post(t, "/api/v1/ingestion/trigger/2024-03-02", "", &res)
	require.Equal(t, http.StatusAccepted, code)
	require.True(t, res.Started)

	env.waitIdle(t)

	var status ingest.RunStatus
	code = env.get(t, "/api/v1/ingestion/status", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, status.Running)

	var jobs handlers.JobsResponseDTO
	code = env.get(t, "/api/v1/ingestion/jobs", &jobs)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, jobs.Count)
	job := jobs.Jobs[0]
	assert.Equal(t, "2024-03-02", job.GazetteDate)
	assert.Equal(t, storage.JobStatusCompleted, job.Status)
	assert.Zero(t, job.DocumentsFound)
	assert.Zero(t, job.CompaniesFound)
	assert.NotNil(t, job.FinishedAt)
}

func TestAPI_TriggerRange_RunsToCompletion(t *testing.T) {
	env := newTestAPI(t)

	var res ingest.TriggerResult
	code := env.post(t, "/api/v1/ingestion/trigger",
		`{"date_from": "2024-03-01", "date_to": "2024-03-03"}`, &res)
	require.Equal(t, http.StatusAccepted, code)
	require.True(t, res.Started)

	env.waitIdle(t)

	var jobs handlers.JobsResponseDTO
	code = env.get(t, "/api/v1/ingestion/jobs?limit=2", &jobs)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2, jobs.Count)
	// Newest gazette date first.
	assert.Equal(t, "2024-03-03", jobs.Jobs[0].GazetteDate)
	assert.Equal(t, "2024-03-02", jobs.Jobs[1].GazetteDate)
	for _, job := range jobs.Jobs {
		assert.Equal(t, storage.JobStatusCompleted, job.Status)
	}
}

func TestAPI_TriggerValidation(t *testing.T) {
	env := newTestAPI(t)

	t.Run("inverted range", func(t *testing.T) {
		var res ingest.TriggerResult
		code := env.post(t, "/api/v1/ingestion/trigger",
			`{"date_from": "2024-03-05", "date_to": "2024-03-01"}`, &res)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, res.Started)
		assert.Contains(t, res.Reason, "inverted")
	})

	t.Run("missing dates", func(t *testing.T) {
		code := env.post(t, "/api/v1/ingestion/trigger", `{"date_from": "2024-03-01"}`, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("malformed body", func(t *testing.T) {
		code := env.post(t, "/api/v1/ingestion/trigger", `{"date_from": `, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("invalid date in path", func(t *testing.T) {
		var res ingest.TriggerResult
		code := env.post(t, "/api/v1/ingestion/trigger/03-01-2024", "", &res)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, res.Reason, "invalid gazette date")
	})

	t.Run("bad jobs limit", func(t *testing.T) {
		code := env.get(t, "/api/v1/ingestion/jobs?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}
