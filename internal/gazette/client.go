// Package gazette resolves publication dates against the bulletin source:
// the day-index XML listing that date's per-region documents, and the
// idempotent download of the documents themselves.
package gazette

import (
	"errors"
	"net/http"
	"time"

	"github.com/registralia/borme-engine/internal/cache"
	"github.com/registralia/borme-engine/internal/observability"
)

// ErrNoPublication indicates the source published nothing for the requested
// date (weekends and holidays). Callers treat it as an empty result, not a
// failure.
var ErrNoPublication = errors.New("no publication for date")

// DocumentRef is one downloadable document from a day index.
type DocumentRef struct {
	ID     string // upstream identifier, e.g. BORME-A-2024-43-28
	Region string // section title, used as the region label
	PDFURL string // absolute download URL
}

// DayIndex is the parsed day index: the documents published for one date.
type DayIndex struct {
	Date      string // ISO YYYY-MM-DD
	Documents []DocumentRef
}

// Client resolves day indexes against the bulletin source.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	indexTimeout time.Duration
	cache        cache.Client
	cacheTTL     time.Duration
	logger       *observability.Logger
}

// ClientConfig holds index resolver configuration.
type ClientConfig struct {
	BaseURL      string // default https://www.boe.es
	UserAgent    string
	IndexTimeout time.Duration
	// Cache, when set, memoizes day-index XML so re-runs skip the fetch.
	Cache    cache.Client
	CacheTTL time.Duration
}

// NewClient creates an index resolver client. A nil logger disables logging.
func NewClient(cfg ClientConfig, logger *observability.Logger) *Client {
	if logger == nil {
		logger = observability.Nop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.boe.es"
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "borme-engine/1.0"
	}
	indexTimeout := cfg.IndexTimeout
	if indexTimeout <= 0 {
		indexTimeout = 30 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}

	return &Client{
		httpClient:   &http.Client{Timeout: indexTimeout},
		baseURL:      baseURL,
		userAgent:    userAgent,
		indexTimeout: indexTimeout,
		cache:        cfg.Cache,
		cacheTTL:     cacheTTL,
		logger:       logger.WithComponent("gazette"),
	}
}
