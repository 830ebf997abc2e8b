// Package main provides the bormectl entrypoint, the operational CLI for
// the gazette ingestion engine.
package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/registralia/borme-engine/cmd/bormectl/ui"
	"github.com/registralia/borme-engine/internal/config"
	"github.com/registralia/borme-engine/internal/observability"
	"github.com/registralia/borme-engine/internal/storage"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool

	// Loaded in PersistentPreRunE, shared by all commands.
	cfg    *config.Config
	logger *observability.Logger
)

var version = "0.1.0"

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "bormectl",
	Short: "Operational CLI for the gazette ingestion engine",
	Long: `bormectl drives the company-gazette ingestion engine from the command line.

Use this tool to:
- Ingest single gazette dates or date ranges
- Backfill the most recent days
- Inspect run status and the per-date job log
- Purge legacy false-header companies
- Debug extraction against a local PDF

All commands support --json for automation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Keep progress rendering clean: the engine's info-level events go
		// to the API binary's log, not to a terminal session.
		level := "warn"
		if verbose {
			level = "debug"
		}
		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}

		// Command output owns stdout; logs go to stderr alongside the
		// progress rendering.
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      logFormat,
			Output:      os.Stderr,
			ServiceName: "bormectl",
		})

		ui.Init(noColor, outputJSON)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newBackfillCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newJobsCmd())
	rootCmd.AddCommand(newPurgeCmd())
	rootCmd.AddCommand(newParsePDFCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bormectl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bormectl %s\n", version)
		},
	}
}

// openDatabase opens the configured database without assembling the full
// engine, for commands that only need storage.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	maxConns := cfg.Database.SQLite.MaxOpenConns
	if cfg.Database.Driver == "postgres" {
		maxConns = cfg.Database.Postgres.MaxOpenConns
	}
	return storage.Open(storage.OpenConfig{
		Driver:          cfg.Database.Driver,
		Path:            cfg.Database.SQLite.Path,
		JournalMode:     cfg.Database.SQLite.JournalMode,
		DSN:             cfg.Database.Postgres.DSN,
		MaxIdleConns:    cfg.Database.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.Postgres.ConnMaxLifetime,
		MaxOpenConns:    maxConns,
	})
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
