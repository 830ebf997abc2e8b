package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/registralia/borme-engine/cmd/bormectl/ui"
	"github.com/registralia/borme-engine/internal/cache"
	"github.com/registralia/borme-engine/internal/ingest"
	"github.com/registralia/borme-engine/internal/storage"
)

// newStatusCmd creates the status subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current run status and store totals",
		Long: `Status reports the run snapshot published to the shared cache together
with company, act and officer-event totals from the store. With the
in-memory cache backend there is no shared snapshot and the run always
reads as idle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			run := cachedRunStatus(ctx)

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			repos := storage.NewRepositories(db)

			companies, err := repos.Companies.Count(ctx)
			if err != nil {
				return fmt.Errorf("count companies: %w", err)
			}
			acts, err := repos.Acts.Count(ctx)
			if err != nil {
				return fmt.Errorf("count acts: %w", err)
			}
			officers, err := repos.OfficerEvents.Count(ctx)
			if err != nil {
				return fmt.Errorf("count officer events: %w", err)
			}
			recent, err := repos.Jobs.ListRecent(ctx, 1)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			if outputJSON {
				out := map[string]interface{}{
					"run":            run,
					"companies":      companies,
					"acts":           acts,
					"officer_events": officers,
				}
				if len(recent) > 0 {
					out["last_job"] = recent[0]
				}
				return printJSON(out)
			}

			ui.Section("ingestion status")
			if run.Running {
				ui.KeyValue("run", fmt.Sprintf("active %s..%s, batch %s (%d/%d dates)",
					run.DateFrom, run.DateTo, run.CurrentBatch, run.Processed, run.Total))
			} else {
				ui.KeyValue("run", "idle")
			}
			ui.KeyValue("companies", strconv.Itoa(companies))
			ui.KeyValue("acts", strconv.Itoa(acts))
			ui.KeyValue("officer events", strconv.Itoa(officers))
			if len(recent) > 0 {
				last := recent[0]
				ui.KeyValue("last job", fmt.Sprintf("%s %s (%d docs, %d created, %d updated)",
					last.GazetteDate, last.Status, last.DocumentsParsed, last.CompaniesCreated, last.CompaniesUpdated))
			}
			return nil
		},
	}
}

// newJobsCmd creates the jobs subcommand.
func newJobsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent ingestion jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			jobs, err := storage.NewRepositories(db).Jobs.ListRecent(ctx, limit)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}

			if outputJSON {
				return printJSON(jobs)
			}
			if len(jobs) == 0 {
				ui.Info("no ingestion jobs recorded")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				message := ""
				if job.ErrorMessage != nil {
					message = *job.ErrorMessage
				}
				rows = append(rows, []string{
					job.GazetteDate,
					string(job.Status),
					fmt.Sprintf("%d/%d", job.DocumentsParsed, job.DocumentsFound),
					strconv.Itoa(job.CompaniesFound),
					strconv.Itoa(job.CompaniesCreated),
					strconv.Itoa(job.CompaniesUpdated),
					strconv.Itoa(job.ActsCreated),
					message,
				})
			}
			ui.Table([]string{"DATE", "STATUS", "DOCS", "FOUND", "CREATED", "UPDATED", "ACTS", "ERROR"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of jobs to list")
	return cmd
}

// cachedRunStatus reads the run snapshot another process published to the
// cache. Any failure reads as idle; status must work with the engine down.
func cachedRunStatus(ctx context.Context) ingest.RunStatus {
	var run ingest.RunStatus

	client, err := cache.New(cache.Config{
		Driver:     cfg.Cache.Driver,
		MaxEntries: cfg.Cache.MaxEntries,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		PoolSize:   cfg.Cache.Redis.PoolSize,
		Prefix:     "borme",
	})
	if err != nil {
		return run
	}
	defer client.Close()

	raw, err := client.Get(ctx, cache.StatusKey())
	if err != nil {
		return run
	}
	_ = json.Unmarshal(raw, &run)
	return run
}
