package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrator applies versioned schema migrations. Migration files are embedded
// so binaries run from any working directory. A file named NNNN_name.sql is
// the Postgres (and default) variant; NNNN_name_sqlite.sql overrides it for
// the SQLite driver.
type Migrator struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

// NewMigrator creates a migrator for the given connection and driver.
func NewMigrator(db *sql.DB, driver string) *Migrator {
	return &Migrator{db: db, driver: driver}
}

// Pending returns migrations that have not been applied yet, in order.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	all, err := m.listMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("list migration files: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied versions: %w", err)
	}

	var pending []string
	for _, name := range all {
		if !applied[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// Run applies all pending migrations and returns the names applied.
func (m *Migrator) Run(ctx context.Context) ([]string, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range pending {
		if err := m.runMigration(ctx, name); err != nil {
			return nil, fmt.Errorf("run migration %s: %w", name, err)
		}
	}
	return pending, nil
}

// ensureSchemaMigrationsTable creates the version tracking table if needed.
func (m *Migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	var query string
	switch m.driver {
	case "sqlite", "":
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				version TEXT UNIQUE NOT NULL,
				applied_at TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`
	default:
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				id SERIAL PRIMARY KEY,
				version TEXT UNIQUE NOT NULL,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`
	}
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// listMigrationFiles lists embedded migration files filtered by driver.
func (m *Migrator) listMigrationFiles() ([]string, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	sqliteVariants := make(map[string]string) // base name -> sqlite filename
	defaults := make(map[string]string)       // base name -> default filename

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if strings.HasSuffix(name, "_sqlite.sql") {
			base := strings.TrimSuffix(name, "_sqlite.sql")
			sqliteVariants[base] = name
		} else {
			base := strings.TrimSuffix(name, ".sql")
			defaults[base] = name
		}
	}

	baseNames := make(map[string]bool)
	for base := range sqliteVariants {
		baseNames[base] = true
	}
	for base := range defaults {
		baseNames[base] = true
	}

	var migrations []string
	for base := range baseNames {
		if m.driver == "sqlite" || m.driver == "" {
			if name, ok := sqliteVariants[base]; ok {
				migrations = append(migrations, name)
			} else if name, ok := defaults[base]; ok {
				migrations = append(migrations, name)
			}
		} else {
			if name, ok := defaults[base]; ok {
				migrations = append(migrations, name)
			}
		}
	}

	sort.Strings(migrations)
	return migrations, nil
}

// appliedVersions returns the set of recorded migration versions.
func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// runMigration executes one migration file and records its version.
func (m *Migrator) runMigration(ctx context.Context, name string) error {
	data, err := migrationFiles.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`,
		name,
	)
	return err
}
