package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Runs and scored claims",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					source TEXT NOT NULL,
					reference_time DATETIME NOT NULL,
					started_at DATETIME NOT NULL,
					duration_ns INTEGER NOT NULL DEFAULT 0,
					contamination REAL NOT NULL,
					seed INTEGER NOT NULL,
					anomalies INTEGER NOT NULL,
					normals INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_runs_started_at ON runs(started_at)`,

				`CREATE TABLE IF NOT EXISTS scored_claims (
					run_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					claim_id TEXT NOT NULL,
					employee_id TEXT NOT NULL,
					element_count INTEGER NOT NULL,
					paid_miles REAL NOT NULL,
					total_miles REAL NOT NULL,
					commute_miles REAL NOT NULL,
					score REAL NOT NULL,
					label INTEGER NOT NULL,
					PRIMARY KEY (run_id, position),
					FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_scored_claims_label ON scored_claims(run_id, label)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Per-stage row counts and coercions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS run_stages (
					run_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					stage TEXT NOT NULL,
					rows_in INTEGER NOT NULL,
					rows_out INTEGER NOT NULL,
					PRIMARY KEY (run_id, position),
					FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS run_coercions (
					run_id TEXT NOT NULL,
					field TEXT NOT NULL,
					count INTEGER NOT NULL,
					PRIMARY KEY (run_id, field),
					FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
