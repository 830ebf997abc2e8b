package gazette

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/registralia/borme-engine/internal/observability"
)

// LocalDocument is a document reference resolved to a local file.
type LocalDocument struct {
	Ref  DocumentRef
	Path string
}

// Downloader fetches bulletin documents to local storage, skipping files
// already present and non-empty.
type Downloader struct {
	httpClient  *http.Client
	root        string
	userAgent   string
	concurrency int
	logger      *observability.Logger
}

// DownloaderConfig holds document fetcher configuration.
type DownloaderConfig struct {
	Root        string // local document root, e.g. data/borme_pdfs
	UserAgent   string
	Concurrency int           // max parallel transfers, default 15
	Timeout     time.Duration // per-request timeout, default 60s
}

// NewDownloader creates a document fetcher. A nil logger disables logging.
func NewDownloader(cfg DownloaderConfig, logger *observability.Logger) *Downloader {
	if logger == nil {
		logger = observability.Nop()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 15
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "borme-engine/1.0"
	}

	return &Downloader{
		httpClient:  &http.Client{Timeout: timeout},
		root:        cfg.Root,
		userAgent:   userAgent,
		concurrency: concurrency,
		logger:      logger.WithComponent("downloader"),
	}
}

// LocalPath returns the storage path for a document id under a gazette date:
// {root}/{YYYY}/{MM}/{id with / replaced by _}.pdf.
func (d *Downloader) LocalPath(date, id string) string {
	filename := strings.ReplaceAll(id, "/", "_") + ".pdf"
	return filepath.Join(d.root, date[:4], date[5:7], filename)
}

// Fetch downloads the referenced documents for an ISO gazette date. Files
// already present with non-zero size are kept as-is, so re-running a date
// transfers nothing. A single document's failure is logged and the document
// excluded; the rest of the batch continues. Results preserve input order.
// onProgress, when non-nil, is called after each document settles.
func (d *Downloader) Fetch(ctx context.Context, date string, refs []DocumentRef, onProgress func(done, total int)) ([]LocalDocument, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid gazette date %q: %w", date, err)
	}
	dir := filepath.Join(d.root, date[:4], date[5:7])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}

	sem := make(chan struct{}, d.concurrency)
	results := make([]*LocalDocument, len(refs))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref DocumentRef) {
			defer wg.Done()

			path, err := d.fetchOne(ctx, dir, ref, sem)
			mu.Lock()
			if err != nil {
				d.logger.Warn().Str("document", ref.ID).Err(err).Msg("document download failed")
			} else {
				results[i] = &LocalDocument{Ref: ref, Path: path}
			}
			done++
			settled := done
			mu.Unlock()

			if onProgress != nil {
				onProgress(settled, len(refs))
			}
		}(i, ref)
	}
	wg.Wait()

	docs := make([]LocalDocument, 0, len(refs))
	for _, res := range results {
		if res != nil {
			docs = append(docs, *res)
		}
	}
	d.logger.Info().Str("date", date).Int("fetched", len(docs)).Int("requested", len(refs)).Msg("documents fetched")
	return docs, nil
}

func (d *Downloader) fetchOne(ctx context.Context, dir string, ref DocumentRef, sem chan struct{}) (string, error) {
	filename := strings.ReplaceAll(ref.ID, "/", "_") + ".pdf"
	path := filepath.Join(dir, filename)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		d.logger.Debug().Str("document", ref.ID).Msg("already downloaded")
		return path, nil
	}

	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.PDFURL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", ref.PDFURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", ref.PDFURL, resp.StatusCode)
	}

	// Write through a temp file so a crash mid-transfer never leaves a
	// truncated file that later passes the size check.
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	if n == 0 {
		os.Remove(tmp)
		return "", fmt.Errorf("empty response body for %s", ref.ID)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize %s: %w", filename, err)
	}

	d.logger.Debug().Str("document", ref.ID).Int64("bytes", n).Msg("downloaded document")
	return path, nil
}
