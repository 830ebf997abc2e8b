// Package engine assembles the ingestion engine from configuration and
// exposes its operations to embedding programs: run triggers, run status,
// the job log and the daily scheduler.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/registralia/borme-engine/internal/cache"
	"github.com/registralia/borme-engine/internal/config"
	"github.com/registralia/borme-engine/internal/extract"
	"github.com/registralia/borme-engine/internal/gazette"
	"github.com/registralia/borme-engine/internal/ingest"
	"github.com/registralia/borme-engine/internal/observability"
	"github.com/registralia/borme-engine/internal/schedule"
	"github.com/registralia/borme-engine/internal/storage"
)

// Engine owns the wired ingestion pipeline and its backing connections.
type Engine struct {
	cfg       *config.Config
	logger    *observability.Logger
	db        *sql.DB
	cache     cache.Client
	orch      *ingest.Orchestrator
	scheduler *schedule.Scheduler
}

// Options tune assembly beyond the file configuration.
type Options struct {
	// Logger overrides the logger built from the configuration.
	Logger *observability.Logger
	// Progress receives per-date download progress, for CLI progress bars.
	Progress func(date string, done, total int)
	// Migrate applies pending schema migrations during assembly.
	Migrate bool
}

// New assembles an engine from configuration. The caller owns the returned
// engine and must Close it.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      cfg.Observability.LogFormat,
			ServiceName: "borme-engine",
		})
	}

	db, err := storage.Open(storage.OpenConfig{
		Driver:          cfg.Database.Driver,
		Path:            cfg.Database.SQLite.Path,
		JournalMode:     cfg.Database.SQLite.JournalMode,
		DSN:             cfg.Database.Postgres.DSN,
		MaxIdleConns:    cfg.Database.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.Postgres.ConnMaxLifetime,
		MaxOpenConns:    maxOpenConns(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.Migrate {
		applied, err := storage.NewMigrator(db, cfg.Database.Driver).Run(context.Background())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if len(applied) > 0 {
			logger.Info().Strs("versions", applied).Msg("schema migrations applied")
		}
	}

	cacheClient, err := cache.New(cache.Config{
		Driver:     cfg.Cache.Driver,
		MaxEntries: cfg.Cache.MaxEntries,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		PoolSize:   cfg.Cache.Redis.PoolSize,
		Prefix:     "borme",
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	client := gazette.NewClient(gazette.ClientConfig{
		BaseURL:      cfg.Source.BaseURL,
		UserAgent:    cfg.Source.UserAgent,
		IndexTimeout: cfg.Source.IndexTimeout,
		Cache:        cacheClient,
		CacheTTL:     cfg.Cache.TTL,
	}, logger)
	downloader := gazette.NewDownloader(gazette.DownloaderConfig{
		Root:        cfg.Storage.DocumentRoot,
		UserAgent:   cfg.Source.UserAgent,
		Concurrency: cfg.Ingestion.DownloadConcurrency,
		Timeout:     cfg.Source.DownloadTimeout,
	}, logger)
	extractor := extract.NewExtractor(extract.Config{}, logger)

	orch := ingest.NewOrchestrator(db, client, downloader, extractor, cacheClient, ingest.Config{
		ParseWorkers:  cfg.Ingestion.ParseWorkers,
		PrefetchDates: cfg.Ingestion.PrefetchDates,
		BatchPause:    cfg.Ingestion.BatchPause,
		Progress:      opts.Progress,
	}, logger)

	eng := &Engine{cfg: cfg, logger: logger, db: db, cache: cacheClient, orch: orch}

	if cfg.Scheduler.Enabled {
		loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			eng.Close()
			return nil, fmt.Errorf("load scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
		}
		eng.scheduler = schedule.New(orch, schedule.Config{
			Hour:     cfg.Scheduler.Hour,
			Minute:   cfg.Scheduler.Minute,
			Location: loc,
		}, logger)
	}

	return eng, nil
}

func maxOpenConns(cfg *config.Config) int {
	if cfg.Database.Driver == "postgres" {
		return cfg.Database.Postgres.MaxOpenConns
	}
	return cfg.Database.SQLite.MaxOpenConns
}

// StartScheduler starts the daily trigger loop when the configuration
// enables it. Returns false when no scheduler is configured.
func (e *Engine) StartScheduler() bool {
	if e.scheduler == nil {
		return false
	}
	e.scheduler.Start()
	return true
}

// Close stops the scheduler and releases the cache and database
// connections.
func (e *Engine) Close() error {
	if e.scheduler != nil {
		e.scheduler.Stop()
	}
	var firstErr error
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			firstErr = err
		}
	}
	if e.db != nil {
		if err := e.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// TriggerRange starts a background run over an inclusive date range. Dates
// already completed are skipped.
func (e *Engine) TriggerRange(from, to string) ingest.TriggerResult {
	return e.orch.TriggerRange(from, to)
}

// TriggerDate starts a background run for a single gazette date, re-ingesting
// it even when already completed.
func (e *Engine) TriggerDate(date string) ingest.TriggerResult {
	return e.orch.TriggerDate(date)
}

// IngestDate runs one gazette date to completion and returns its job row.
func (e *Engine) IngestDate(ctx context.Context, date string) (*storage.IngestionJob, error) {
	return e.orch.IngestDate(ctx, date)
}

// IngestRange runs an inclusive date range to completion, oldest first.
func (e *Engine) IngestRange(ctx context.Context, from, to string) error {
	return e.orch.IngestRange(ctx, from, to)
}

// Status returns a snapshot of the run state.
func (e *Engine) Status() ingest.RunStatus {
	return e.orch.Status()
}

// RecentJobs lists job log rows, newest gazette date first.
func (e *Engine) RecentJobs(ctx context.Context, limit int) ([]*storage.IngestionJob, error) {
	return e.orch.RecentJobs(ctx, limit)
}

// DB exposes the underlying connection, for health checks.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Repositories returns the storage repositories over the engine's database.
func (e *Engine) Repositories() *storage.Repositories {
	return storage.NewRepositories(e.db)
}
