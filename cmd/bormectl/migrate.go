package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/registralia/borme-engine/cmd/bormectl/ui"
	"github.com/registralia/borme-engine/internal/storage"
)

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  "Apply pending schema migrations for the configured database driver.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			applied, err := storage.NewMigrator(db, cfg.Database.Driver).Run(ctx)
			if err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			if outputJSON {
				return printJSON(map[string]interface{}{"applied": applied})
			}
			if len(applied) == 0 {
				ui.Info("schema is up to date")
				return nil
			}
			ui.Success("applied %d migration(s): %s", len(applied), strings.Join(applied, ", "))
			return nil
		},
	}
}
