package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/registralia/borme-engine/cmd/bormectl/ui"
	"github.com/registralia/borme-engine/internal/storage"
)

// newPurgeCmd creates the purge subcommand.
func newPurgeCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete false-header companies",
		Long: `Purge removes companies whose stored name starts with an opening
parenthesis. Such rows are artifacts of province annotations parsed as
company headers by early extractor versions. Dependent acts and officer
events are removed with them.

Use --dry-run to list candidates without deleting anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			repos := storage.NewRepositories(db)

			scan := ui.NewSpinner("scanning for false-header companies...")
			scan.Start()
			candidates, err := repos.Companies.ListFalseHeaders(ctx)
			scan.Stop()
			if err != nil {
				return fmt.Errorf("list false headers: %w", err)
			}

			if len(candidates) == 0 {
				if outputJSON {
					return printJSON(map[string]interface{}{"dry_run": dryRun, "deleted": 0})
				}
				ui.Success("no false-header companies found")
				return nil
			}

			rows := make([][]string, 0, len(candidates))
			for _, company := range candidates {
				rows = append(rows, []string{
					company.Name,
					stringOr(company.Province, "-"),
					stringOr(company.FirstSeenDate, "-"),
				})
			}
			ui.Table([]string{"NAME", "PROVINCE", "FIRST SEEN"}, rows)

			if dryRun {
				if outputJSON {
					return printJSON(map[string]interface{}{"dry_run": true, "candidates": candidates})
				}
				ui.Info("dry run: %d company(ies) would be deleted", len(candidates))
				return nil
			}

			deleted := 0
			for _, company := range candidates {
				if err := repos.Companies.Delete(ctx, company.ID); err != nil {
					return fmt.Errorf("delete %q: %w", company.Name, err)
				}
				deleted++
			}

			if outputJSON {
				return printJSON(map[string]interface{}{"dry_run": false, "deleted": deleted})
			}
			ui.Success("deleted %d false-header company(ies)", deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list deletions without executing them")
	return cmd
}

func stringOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
