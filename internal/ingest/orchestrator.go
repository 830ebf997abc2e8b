// Package ingest orchestrates the gazette ingestion pipeline: day-index
// resolution, document download, record extraction, normalization and the
// merge into the store, with a per-date job log and a single-run state gate.
package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/registralia/borme-engine/internal/cache"
	"github.com/registralia/borme-engine/internal/extract"
	"github.com/registralia/borme-engine/internal/gazette"
	"github.com/registralia/borme-engine/internal/normalize"
	"github.com/registralia/borme-engine/internal/observability"
	"github.com/registralia/borme-engine/internal/storage"
)

// rawTextLimit caps the stored act excerpt, in runes.
const rawTextLimit = 2000

// statusTTL bounds how long a stale run-status snapshot survives in the
// cache after a crash.
const statusTTL = 24 * time.Hour

// DocumentParser turns a downloaded document into raw company records.
// *extract.Extractor satisfies it; tests substitute plain-text parsers.
type DocumentParser interface {
	ParseFile(ctx context.Context, path string) ([]extract.CompanyRecord, error)
}

// Config tunes the pipeline. Zero values select the defaults.
type Config struct {
	// ParseWorkers bounds concurrent document parsing within one date.
	ParseWorkers int
	// PrefetchDates is the look-ahead batch size: this many dates fetch and
	// parse concurrently while earlier dates store.
	PrefetchDates int
	// BatchPause is the idle time between date batches, politeness towards
	// the source.
	BatchPause time.Duration
	// Progress, when set, receives per-date download progress.
	Progress func(date string, done, total int)
}

func (c Config) withDefaults() Config {
	if c.ParseWorkers <= 0 {
		c.ParseWorkers = 4
	}
	if c.PrefetchDates <= 0 {
		c.PrefetchDates = 3
	}
	if c.BatchPause <= 0 {
		c.BatchPause = 500 * time.Millisecond
	}
	return c
}

// Orchestrator runs the ingestion pipeline. One run at a time: date batches
// fetch and parse concurrently, storing is strictly sequential per date and
// each date's writes happen inside one transaction.
type Orchestrator struct {
	db         *sql.DB
	client     *gazette.Client
	downloader *gazette.Downloader
	parser     DocumentParser
	cache      cache.Client
	jobs       *storage.JobRepository
	cfg        Config
	logger     *observability.Logger
	state      runState
}

// NewOrchestrator creates an orchestrator. The cache client is optional and
// only mirrors the run-status snapshot; a nil logger disables logging.
func NewOrchestrator(
	db *sql.DB,
	client *gazette.Client,
	downloader *gazette.Downloader,
	parser DocumentParser,
	cacheClient cache.Client,
	cfg Config,
	logger *observability.Logger,
) *Orchestrator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Orchestrator{
		db:         db,
		client:     client,
		downloader: downloader,
		parser:     parser,
		cache:      cacheClient,
		jobs:       storage.NewJobRepository(db),
		cfg:        cfg.withDefaults(),
		logger:     logger.WithComponent("ingest"),
	}
}

// Status returns a snapshot of the run state.
func (o *Orchestrator) Status() RunStatus {
	return o.state.snapshot()
}

// RecentJobs lists job log rows, newest gazette date first.
func (o *Orchestrator) RecentJobs(ctx context.Context, limit int) ([]*storage.IngestionJob, error) {
	return o.jobs.ListRecent(ctx, limit)
}

// IngestDate runs the full pipeline for one gazette date, blocking until it
// finishes, and returns the date's job log row. The date is re-ingested even
// when already completed; the store's uniqueness keys keep the outcome
// identical.
func (o *Orchestrator) IngestDate(ctx context.Context, date string) (*storage.IngestionJob, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid gazette date %q: %w", date, err)
	}
	if !o.state.begin(date, date, 1) {
		return nil, ErrAlreadyRunning
	}
	defer o.endRun()
	o.publishStatus(ctx)

	runErr := o.runDates(ctx, []string{date}, false)
	job, err := o.jobs.GetByDate(ctx, date)
	if err != nil {
		if runErr != nil {
			return nil, runErr
		}
		return nil, fmt.Errorf("read job for %s: %w", date, err)
	}
	return job, runErr
}

// IngestRange runs the pipeline for every date in the inclusive range,
// oldest first, blocking until the range finishes. Dates already completed
// are skipped; a date's failure is recorded and the range continues.
func (o *Orchestrator) IngestRange(ctx context.Context, from, to string) error {
	dates, err := datesBetween(from, to)
	if err != nil {
		return err
	}
	if !o.state.begin(from, to, len(dates)) {
		return ErrAlreadyRunning
	}
	defer o.endRun()
	o.publishStatus(ctx)

	return o.runDates(ctx, dates, true)
}

// TriggerRange starts a background run for the inclusive date range and
// returns immediately. Refused when the dates are invalid or a run is
// already active.
func (o *Orchestrator) TriggerRange(from, to string) TriggerResult {
	dates, err := datesBetween(from, to)
	if err != nil {
		return TriggerResult{Reason: err.Error()}
	}
	if !o.state.begin(from, to, len(dates)) {
		return TriggerResult{Reason: ErrAlreadyRunning.Error()}
	}
	go func() {
		defer o.endRun()
		o.publishStatus(context.Background())
		if err := o.runDates(context.Background(), dates, true); err != nil {
			o.logger.Error().Err(err).Str("from", from).Str("to", to).Msg("background range run finished with errors")
		}
	}()
	return TriggerResult{Started: true}
}

// TriggerDate starts a background run for a single date and returns
// immediately. The date is re-ingested even when already completed.
func (o *Orchestrator) TriggerDate(date string) TriggerResult {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return TriggerResult{Reason: fmt.Sprintf("invalid gazette date %q", date)}
	}
	if !o.state.begin(date, date, 1) {
		return TriggerResult{Reason: ErrAlreadyRunning.Error()}
	}
	go func() {
		defer o.endRun()
		o.publishStatus(context.Background())
		if err := o.runDates(context.Background(), []string{date}, false); err != nil {
			o.logger.Error().Err(err).Str("gazette_date", date).Msg("background date run finished with errors")
		}
	}()
	return TriggerResult{Started: true}
}

// endRun releases the run slot and publishes the final status snapshot.
func (o *Orchestrator) endRun() {
	o.state.finish()
	o.publishStatus(context.Background())
}

// runDates processes dates in look-ahead batches: job rows are created or
// reset up front, the whole batch fetches and parses concurrently, then the
// results store sequentially in date order. The caller holds the run slot.
func (o *Orchestrator) runDates(ctx context.Context, dates []string, skipCompleted bool) error {
	var failed int

	for start := 0; start < len(dates); start += o.cfg.PrefetchDates {
		end := start + o.cfg.PrefetchDates
		if end > len(dates) {
			end = len(dates)
		}
		batch := dates[start:end]
		o.state.setBatch(batch[0], batch[len(batch)-1])
		o.publishStatus(ctx)

		var pending []*storage.IngestionJob
		for _, date := range batch {
			if skipCompleted {
				if job, err := o.jobs.GetByDate(ctx, date); err == nil && job.Status == storage.JobStatusCompleted {
					o.logger.Info().Str("gazette_date", date).Msg("date already ingested, skipping")
					o.state.advance(1)
					continue
				}
			}
			job, err := o.jobs.CreateOrReset(ctx, date)
			if err != nil {
				// The job log itself is unwritable; nothing can be recorded.
				return fmt.Errorf("create job for %s: %w", date, err)
			}
			pending = append(pending, job)
		}

		results := make([]*dateResult, len(pending))
		fetchErrs := make([]error, len(pending))
		var wg sync.WaitGroup
		for i, job := range pending {
			wg.Add(1)
			go func(i int, job *storage.IngestionJob) {
				defer wg.Done()
				results[i], fetchErrs[i] = o.fetchAndParse(ctx, job)
			}(i, job)
		}
		wg.Wait()

		for i, job := range pending {
			switch {
			case fetchErrs[i] != nil:
				o.logger.Error().Err(fetchErrs[i]).Str("gazette_date", job.GazetteDate).Msg("date failed before storing")
				o.markFailed(ctx, job, fetchErrs[i])
				failed++
			default:
				if err := o.storeDate(ctx, job, results[i]); err != nil {
					o.logger.Error().Err(err).Str("gazette_date", job.GazetteDate).Msg("date failed while storing")
					o.markFailed(ctx, job, err)
					failed++
				}
			}
			o.state.advance(1)
			o.publishStatus(ctx)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if end < len(dates) && o.cfg.BatchPause > 0 {
			select {
			case <-time.After(o.cfg.BatchPause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d dates failed", failed, len(dates))
	}
	return nil
}

func (o *Orchestrator) markFailed(ctx context.Context, job *storage.IngestionJob, cause error) {
	if err := o.jobs.MarkFailed(ctx, job, cause); err != nil {
		o.logger.Error().Err(err).Str("gazette_date", job.GazetteDate).Msg("could not record job failure")
	}
}

// dateResult carries everything fetched and parsed for one date, ready for
// the sequential store phase. A nil index means the source published nothing
// for the date.
type dateResult struct {
	index  *gazette.DayIndex
	parsed []parsedDocument
}

type parsedDocument struct {
	ref     gazette.DocumentRef
	records []extract.CompanyRecord
}

// fetchAndParse resolves the day index, downloads the documents and parses
// them. Only the date's own job row is written; company data stays in
// memory for the store phase.
func (o *Orchestrator) fetchAndParse(ctx context.Context, job *storage.IngestionJob) (*dateResult, error) {
	date := job.GazetteDate
	logger := o.logger.WithDate(date)

	job.Status = storage.JobStatusFetching
	if err := o.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	index, err := o.client.DayIndex(ctx, date)
	if errors.Is(err, gazette.ErrNoPublication) {
		logger.Info().Msg("no publication for date")
		return &dateResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve day index: %w", err)
	}

	job.DocumentsFound = len(index.Documents)
	if err := o.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	var onProgress func(done, total int)
	if o.cfg.Progress != nil {
		onProgress = func(done, total int) { o.cfg.Progress(date, done, total) }
	}
	docs, err := o.downloader.Fetch(ctx, date, index.Documents, onProgress)
	if err != nil {
		return nil, fmt.Errorf("download documents: %w", err)
	}

	job.Status = storage.JobStatusParsing
	if err := o.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	parsed := o.parseDocuments(ctx, logger, docs)
	logger.Info().
		Int("documents", len(index.Documents)).
		Int("downloaded", len(docs)).
		Int("parsed", len(parsed)).
		Msg("date fetched and parsed")

	return &dateResult{index: index, parsed: parsed}, nil
}

// parseDocuments runs the document parser over a bounded worker pool. A
// document that fails to parse is logged and dropped; the rest continue.
// Results keep input order.
func (o *Orchestrator) parseDocuments(ctx context.Context, logger *observability.Logger, docs []gazette.LocalDocument) []parsedDocument {
	sem := make(chan struct{}, o.cfg.ParseWorkers)
	results := make([]*parsedDocument, len(docs))
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc gazette.LocalDocument) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			records, err := o.parser.ParseFile(ctx, doc.Path)
			if err != nil {
				logger.Warn().Err(err).Str("document_id", doc.Ref.ID).Msg("document parse failed")
				return
			}
			results[i] = &parsedDocument{ref: doc.Ref, records: records}
		}(i, doc)
	}
	wg.Wait()

	parsed := make([]parsedDocument, 0, len(docs))
	for _, r := range results {
		if r != nil {
			parsed = append(parsed, *r)
		}
	}
	return parsed
}

// storeDate writes one date's results inside a single transaction and closes
// the job. Job rows go through the base connection so the recorded phase
// survives a rolled-back date.
func (o *Orchestrator) storeDate(ctx context.Context, job *storage.IngestionJob, result *dateResult) error {
	date := job.GazetteDate

	if result.index == nil {
		// No publication: the date completes with zero counts.
		return o.jobs.MarkCompleted(ctx, job)
	}

	job.Status = storage.JobStatusStoring
	job.DocumentsParsed = len(result.parsed)
	if err := o.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := storage.NewRepositories(tx)
	var counts mergeCounts
	for _, doc := range result.parsed {
		for i := range doc.records {
			if err := o.storeCompany(ctx, repos, &doc.records[i], doc.ref, date, &counts); err != nil {
				return fmt.Errorf("store company %q: %w", doc.records[i].Name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	job.CompaniesFound = counts.found
	job.CompaniesCreated = counts.created
	job.CompaniesUpdated = counts.updated
	job.ActsCreated = counts.acts
	if err := o.jobs.MarkCompleted(ctx, job); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	o.logger.WithDate(date).Info().
		Int("documents_found", job.DocumentsFound).
		Int("documents_parsed", job.DocumentsParsed).
		Int("companies_created", counts.created).
		Int("companies_updated", counts.updated).
		Int("acts_created", counts.acts).
		Msg("date ingested")
	return nil
}

type mergeCounts struct {
	found   int
	created int
	updated int
	acts    int
}

// storeCompany normalizes one extracted record and merges it into the store:
// company row by the (normalized name, province) identity, then acts and
// officer events under their uniqueness keys.
func (o *Orchestrator) storeCompany(
	ctx context.Context,
	repos *storage.Repositories,
	rec *extract.CompanyRecord,
	ref gazette.DocumentRef,
	date string,
	counts *mergeCounts,
) error {
	incoming := normalize.Company(rec, ref.Region, date)
	counts.found++

	province := ""
	if incoming.Province != nil {
		province = *incoming.Province
	}

	company, err := repos.Companies.GetByIdentity(ctx, incoming.NormalizedName, province)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		company = &incoming
		if err := repos.Companies.Create(ctx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		counts.created++
	case err != nil:
		return fmt.Errorf("look up company: %w", err)
	default:
		merged := Merge(*company, incoming)
		if err := repos.Companies.Update(ctx, &merged); err != nil {
			return fmt.Errorf("update company: %w", err)
		}
		company = &merged
		counts.updated++
	}

	for _, act := range rec.Acts {
		row := &storage.CompanyAct{
			CompanyID:   company.ID,
			ActType:     act.Type,
			GazetteDate: date,
			DocumentID:  ref.ID,
		}
		if ref.PDFURL != "" {
			row.SourceURL = &ref.PDFURL
		}
		if act.Text != "" {
			raw := truncateRunes(act.Text, rawTextLimit)
			row.RawText = &raw
		}
		inserted, err := repos.Acts.Create(ctx, row)
		if err != nil {
			return fmt.Errorf("create act: %w", err)
		}
		if inserted {
			counts.acts++
		}

		eventType, ok := extract.OfficerEventTypeFor(act.Type)
		if !ok {
			continue
		}
		for _, officer := range act.Officers {
			event := &storage.OfficerEvent{
				CompanyID:   company.ID,
				ActID:       &row.ID,
				PersonName:  normalize.PersonName(officer.Name),
				Role:        officer.Role,
				EventType:   eventType,
				GazetteDate: date,
			}
			if _, err := repos.OfficerEvents.Create(ctx, event); err != nil {
				return fmt.Errorf("create officer event: %w", err)
			}
		}
	}
	return nil
}

// publishStatus mirrors the run state into the cache for cheap external
// polling. Best effort: a cache failure never affects the run.
func (o *Orchestrator) publishStatus(ctx context.Context) {
	if o.cache == nil {
		return
	}
	snapshot, err := json.Marshal(o.state.snapshot())
	if err != nil {
		return
	}
	if err := o.cache.Set(ctx, cache.StatusKey(), snapshot, statusTTL); err != nil {
		o.logger.Debug().Err(err).Msg("status snapshot not cached")
	}
}

// datesBetween expands an inclusive ISO date range, oldest first. Storing
// chronologically keeps last-seen dates and statuses converging on the most
// recent sighting.
func datesBetween(from, to string) ([]string, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("invalid gazette date %q: %w", from, err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("invalid gazette date %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("date range %s..%s is inverted", from, to)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

// truncateRunes caps s at n runes without splitting a multibyte character.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
