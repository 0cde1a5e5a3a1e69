package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zero-day-ai/clausegraph/internal/types"
)

// Migrator applies schema migrations.
type Migrator interface {
	// Migrate applies all pending migrations
	Migrate(ctx context.Context) error

	// CurrentVersion returns the current schema version
	CurrentVersion(ctx context.Context) (int, error)

	// Rollback rolls back to a target version
	Rollback(ctx context.Context, targetVersion int) error

	// AppliedMigrations lists applied migrations in version order
	AppliedMigrations(ctx context.Context) ([]MigrationInfo, error)
}

// MigrationInfo describes an applied migration.
type MigrationInfo struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

type migration struct {
	version int
	name    string
	up      []string
	down    []string
}

type migrator struct {
	db         *DB
	migrations []migration
}

// NewMigrator creates a migrator for db.
func NewMigrator(db *DB) Migrator {
	return &migrator{db: db, migrations: migrations()}
}

func migrations() []migration {
	return []migration{
		{
			version: 1,
			name:    "runs_table",
			up: []string{
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					source TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL,
					completed_at TIMESTAMP NOT NULL,
					text_length INTEGER NOT NULL DEFAULT 0,
					clause_count INTEGER NOT NULL DEFAULT 0,
					entity_count INTEGER NOT NULL DEFAULT 0,
					relationship_count INTEGER NOT NULL DEFAULT 0,
					critical_issues INTEGER NOT NULL DEFAULT 0,
					has_critical INTEGER NOT NULL DEFAULT 0,
					errors TEXT NOT NULL DEFAULT '[]',
					metadata TEXT NOT NULL DEFAULT '{}',
					report TEXT NOT NULL DEFAULT ''
				)`,
			},
			down: []string{`DROP TABLE IF EXISTS runs`},
		},
		{
			version: 2,
			name:    "runs_indexes",
			up: []string{
				`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_runs_has_critical ON runs(has_critical)`,
			},
			down: []string{
				`DROP INDEX IF EXISTS idx_runs_has_critical`,
				`DROP INDEX IF EXISTS idx_runs_created_at`,
			},
		},
	}
}

func (m *migrator) Migrate(ctx context.Context) error {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if mig.version <= current {
			continue
		}
		if err := m.apply(ctx, mig.version, mig.up, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO migrations (version, name, applied_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
				mig.version, mig.name)
			return err
		}); err != nil {
			return types.WrapError(types.DB_MIGRATION_FAILED,
				fmt.Sprintf("failed to apply migration %d (%s)", mig.version, mig.name), err)
		}
	}
	return nil
}

func (m *migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := m.db.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&version); err != nil {
		return 0, types.WrapError(types.DB_MIGRATION_FAILED, "failed to query current version", err)
	}
	return version, nil
}

func (m *migrator) Rollback(ctx context.Context, targetVersion int) error {
	if targetVersion < 0 {
		return types.NewError(types.DB_MIGRATION_FAILED, fmt.Sprintf("invalid target version: %d", targetVersion))
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if targetVersion > current {
		return types.NewError(types.DB_MIGRATION_FAILED,
			fmt.Sprintf("cannot rollback to future version %d (current: %d)", targetVersion, current))
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if mig.version <= targetVersion {
			break
		}
		if mig.version > current {
			continue
		}
		if err := m.apply(ctx, mig.version, mig.down, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM migrations WHERE version = ?", mig.version)
			return err
		}); err != nil {
			return types.WrapError(types.DB_MIGRATION_FAILED,
				fmt.Sprintf("failed to rollback migration %d (%s)", mig.version, mig.name), err)
		}
	}
	return nil
}

func (m *migrator) AppliedMigrations(ctx context.Context) ([]MigrationInfo, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}

	rows, err := m.db.conn.QueryContext(ctx, "SELECT version, name, applied_at FROM migrations ORDER BY version")
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to query migrations", err)
	}
	defer rows.Close()

	var out []MigrationInfo
	for rows.Next() {
		var info MigrationInfo
		if err := rows.Scan(&info.Version, &info.Name, &info.AppliedAt); err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan migration", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (m *migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.conn.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return types.WrapError(types.DB_MIGRATION_FAILED, "failed to create migrations table", err)
	}
	return nil
}

// apply runs statements and record in one transaction.
func (m *migrator) apply(ctx context.Context, version int, statements []string, record func(*sql.Tx) error) error {
	return m.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d: %w", version, err)
			}
		}
		return record(tx)
	})
}
