package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/model"
)

// SaveRun records a run and its scored claims in one transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run model.Run, rows []model.ScoredAggregate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run, rows); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, reference_time, started_at, duration_ns,
			contamination, seed, anomalies, normals)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.ReferenceTime.UTC(), run.StartedAt.UTC(), int64(run.Duration),
		run.Contamination, run.Seed, run.Anomalies, run.Normals)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err = insertStages(ctx, tx, run); err != nil {
		return err
	}
	if err = insertClaims(ctx, tx, run.ID, rows); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func insertStages(ctx context.Context, tx *sql.Tx, run model.Run) error {
	for i, stage := range run.Stages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_stages (run_id, position, stage, rows_in, rows_out) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, stage.Stage, stage.RowsIn, stage.RowsOut); err != nil {
			return fmt.Errorf("failed to insert stage %s: %w", stage.Stage, err)
		}
	}
	for field, count := range run.Coerced {
		if count == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_coercions (run_id, field, count) VALUES (?, ?, ?)`,
			run.ID, string(field), count); err != nil {
			return fmt.Errorf("failed to insert coercion count for %s: %w", field, err)
		}
	}
	return nil
}

func insertClaims(ctx context.Context, tx *sql.Tx, runID string, rows []model.ScoredAggregate) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scored_claims (run_id, position, claim_id, employee_id, element_count,
			paid_miles, total_miles, commute_miles, score, label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare claim insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, runID, i, row.ClaimID, row.EmployeeID, row.ElementCount,
			row.PaidMiles, row.TotalMiles, row.CommuteMiles, row.Score, int(row.Label)); err != nil {
			return fmt.Errorf("failed to insert claim %s: %w", row.Key(), err)
		}
	}
	return nil
}

const runColumns = `id, source, reference_time, started_at, duration_ns, contamination, seed, anomalies, normals`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var run model.Run
	var duration int64
	if err := row.Scan(&run.ID, &run.Source, &run.ReferenceTime, &run.StartedAt, &duration,
		&run.Contamination, &run.Seed, &run.Anomalies, &run.Normals); err != nil {
		return model.Run{}, err
	}
	run.Duration = time.Duration(duration)
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id is id or, failing that, the only run whose
// id starts with id. Stage counts and coercions are included.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	fullID, err := s.resolveRunID(ctx, id)
	if err != nil {
		return nil, err
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, fullID))
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", fullID, err)
	}

	if err := s.loadStages(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStorage) resolveRunID(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		prefix, escapeLike(prefix)+"%", prefix)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run id: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case len(ids) == 0:
		return "", fmt.Errorf("run %s: %w", prefix, common.ErrNotFound)
	case ids[0] == prefix || len(ids) == 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

func (s *SQLiteStorage) loadStages(ctx context.Context, run *model.Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, rows_in, rows_out FROM run_stages WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var stage model.StageCount
		if err := rows.Scan(&stage.Stage, &stage.RowsIn, &stage.RowsOut); err != nil {
			return fmt.Errorf("failed to scan stage: %w", err)
		}
		run.Stages = append(run.Stages, stage)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	coerced, err := s.db.QueryContext(ctx,
		`SELECT field, count FROM run_coercions WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query coercions: %w", err)
	}
	defer func() { _ = coerced.Close() }()

	run.Coerced = make(map[model.Field]int)
	for coerced.Next() {
		var field string
		var count int
		if err := coerced.Scan(&field, &count); err != nil {
			return fmt.Errorf("failed to scan coercion: %w", err)
		}
		run.Coerced[model.Field(field)] = count
	}
	return coerced.Err()
}

// GetScoredClaims returns the claims scored by a run in their original order,
// optionally only the anomalous ones.
func (s *SQLiteStorage) GetScoredClaims(ctx context.Context, runID string, anomalousOnly bool) ([]model.ScoredAggregate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	query := `SELECT claim_id, employee_id, element_count, paid_miles, total_miles, commute_miles, score, label
		FROM scored_claims WHERE run_id = ?`
	args := []any{runID}
	if anomalousOnly {
		query += ` AND label = ?`
		args = append(args, int(model.LabelAnomalous))
	}
	query += ` ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scored claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	claims := make([]model.ScoredAggregate, 0)
	for rows.Next() {
		var c model.ScoredAggregate
		var label int
		if err := rows.Scan(&c.ClaimID, &c.EmployeeID, &c.ElementCount, &c.PaidMiles,
			&c.TotalMiles, &c.CommuteMiles, &c.Score, &label); err != nil {
			return nil, fmt.Errorf("failed to scan scored claim: %w", err)
		}
		c.Label = model.Label(label)
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// DeleteRun removes a run and everything recorded with it.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err means a run does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
