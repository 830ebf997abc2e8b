package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/registralia/borme-engine/cmd/bormectl/ui"
	"github.com/registralia/borme-engine/internal/storage"
	"github.com/registralia/borme-engine/pkg/engine"
)

// newIngestCmd creates the ingest subcommand.
func newIngestCmd() *cobra.Command {
	var (
		date string
		from string
		to   string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest gazette dates into the company store",
		Long: `Ingest downloads, parses and stores company records for a single gazette
date (--date) or an inclusive date range (--from/--to).

A single date is re-ingested even when already completed; ranges skip
completed dates. Dates without a publication (weekends, holidays) complete
as empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			single := date != ""
			ranged := from != "" || to != ""
			if single == ranged {
				return fmt.Errorf("specify either --date or --from/--to")
			}
			if ranged && (from == "" || to == "") {
				return fmt.Errorf("--from and --to are both required for a range")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if single {
				return runSingleDate(ctx, date)
			}
			return runRange(ctx, from, to)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "gazette date YYYY-MM-DD (re-ingests when already completed)")
	cmd.Flags().StringVar(&from, "from", "", "range start YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "range end YYYY-MM-DD (inclusive)")
	return cmd
}

// newBackfillCmd creates the backfill subcommand.
func newBackfillCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Ingest the most recent days ending yesterday",
		Long: `Backfill ingests the last N gazette dates ending yesterday, skipping
dates already completed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			yesterday := time.Now().AddDate(0, 0, -1)
			from := yesterday.AddDate(0, 0, -(days - 1)).Format("2006-01-02")
			to := yesterday.Format("2006-01-02")

			ui.Step("backfilling %d day(s): %s .. %s", days, from, to)
			return runRange(ctx, from, to)
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "number of days to backfill, ending yesterday")
	return cmd
}

// runSingleDate ingests one gazette date with a document progress bar.
func runSingleDate(ctx context.Context, date string) error {
	bar := ui.NewDateBar(date)
	eng, err := engine.New(cfg, engine.Options{
		Logger: logger,
		Progress: func(_ string, done, total int) {
			bar.Update(done, total)
		},
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	started := time.Now()
	job, runErr := eng.IngestDate(ctx, date)
	bar.Finish()

	if outputJSON {
		out := map[string]interface{}{"gazette_date": date, "job": job}
		if runErr != nil {
			out["error"] = runErr.Error()
		}
		if err := printJSON(out); err != nil {
			return err
		}
		return runErr
	}

	if runErr != nil {
		ui.Error("ingest %s failed after %s", date, ui.FormatDuration(time.Since(started)))
		if job != nil {
			printJobSummary(job)
		}
		return runErr
	}

	ui.Success("ingested %s in %s", date, ui.FormatDuration(time.Since(started)))
	printJobSummary(job)
	return nil
}

// runRange ingests an inclusive date range with per-date progress bars.
func runRange(ctx context.Context, from, to string) error {
	multi := ui.NewMultiBar()
	eng, err := engine.New(cfg, engine.Options{
		Logger:   logger,
		Progress: multi.Update,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	started := time.Now()
	runErr := eng.IngestRange(ctx, from, to)
	multi.Stop()

	jobs, err := eng.Repositories().Jobs.ListByDateRange(context.Background(), from, to)
	if err != nil {
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("list jobs for %s..%s: %w", from, to, err)
	}

	var completed int
	var failed []*storage.IngestionJob
	for _, job := range jobs {
		switch job.Status {
		case storage.JobStatusCompleted:
			completed++
		case storage.JobStatusFailed:
			failed = append(failed, job)
		}
	}

	if outputJSON {
		out := map[string]interface{}{
			"date_from":   from,
			"date_to":     to,
			"completed":   completed,
			"failed":      len(failed),
			"duration_ms": time.Since(started).Milliseconds(),
		}
		if runErr != nil {
			out["error"] = runErr.Error()
		}
		if err := printJSON(out); err != nil {
			return err
		}
		return runErr
	}

	if runErr != nil {
		ui.Warning("range %s..%s finished with failures after %s", from, to, ui.FormatDuration(time.Since(started)))
		for _, job := range failed {
			message := ""
			if job.ErrorMessage != nil {
				message = *job.ErrorMessage
			}
			ui.Error("%s: %s", job.GazetteDate, message)
		}
		return runErr
	}

	ui.Success("ingested %s..%s in %s (%d date(s) completed)", from, to, ui.FormatDuration(time.Since(started)), completed)
	return nil
}

// printJobSummary prints the counters of one job row.
func printJobSummary(job *storage.IngestionJob) {
	ui.KeyValue("status", string(job.Status))
	ui.KeyValue("documents", fmt.Sprintf("%d parsed / %d found", job.DocumentsParsed, job.DocumentsFound))
	ui.KeyValue("companies", fmt.Sprintf("%d found, %d created, %d updated", job.CompaniesFound, job.CompaniesCreated, job.CompaniesUpdated))
	ui.KeyValue("acts", job.ActsCreated)
	if job.ErrorMessage != nil {
		ui.KeyValue("error", *job.ErrorMessage)
	}
}
