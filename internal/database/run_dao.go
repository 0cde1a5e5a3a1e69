package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zero-day-ai/clausegraph/internal/types"
)

// Run is one archived analysis.
type Run struct {
	ID                string         `json:"id"`
	Source            string         `json:"source"`
	CreatedAt         time.Time      `json:"created_at"`
	CompletedAt       time.Time      `json:"completed_at"`
	TextLength        int            `json:"text_length"`
	ClauseCount       int            `json:"clause_count"`
	EntityCount       int            `json:"entity_count"`
	RelationshipCount int            `json:"relationship_count"`
	CriticalIssues    int            `json:"critical_issues"`
	HasCritical       bool           `json:"has_critical_findings"`
	Errors            []string       `json:"errors"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	Report            string         `json:"report,omitempty"`
}

// RunFilter narrows RunDAO.List.
type RunFilter struct {
	CriticalOnly bool
	Limit        int
	Offset       int
}

// RunDAO provides database access for archived runs.
type RunDAO struct {
	db *DB
}

// NewRunDAO creates a new RunDAO instance
func NewRunDAO(db *DB) *RunDAO {
	return &RunDAO{db: db}
}

// Create inserts a run. An existing run with the same id is replaced.
func (dao *RunDAO) Create(ctx context.Context, run *Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return types.NewValidationError("run id cannot be empty", "id", "")
	}

	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to marshal errors", err)
	}
	metadata := run.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to marshal metadata", err)
	}

	query := `
		INSERT OR REPLACE INTO runs (
			id, source, created_at, completed_at,
			text_length, clause_count, entity_count, relationship_count,
			critical_issues, has_critical, errors, metadata, report
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = dao.db.ExecContext(ctx, query,
		run.ID,
		run.Source,
		run.CreatedAt.UTC(),
		run.CompletedAt.UTC(),
		run.TextLength,
		run.ClauseCount,
		run.EntityCount,
		run.RelationshipCount,
		run.CriticalIssues,
		run.HasCritical,
		string(errorsJSON),
		string(metadataJSON),
		run.Report,
	)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to insert run", err).WithDetail("run_id", run.ID)
	}
	return nil
}

// Get returns the run with id, or a DB_NOT_FOUND error.
func (dao *RunDAO) Get(ctx context.Context, id string) (*Run, error) {
	row := dao.db.QueryRowContext(ctx, `
		SELECT id, source, created_at, completed_at,
			text_length, clause_count, entity_count, relationship_count,
			critical_issues, has_critical, errors, metadata, report
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NewError(types.DB_NOT_FOUND, "run not found").WithDetail("run_id", id)
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to get run", err).WithDetail("run_id", id)
	}
	return run, nil
}

// List returns runs newest first. Reports are omitted.
func (dao *RunDAO) List(ctx context.Context, filter RunFilter) ([]*Run, error) {
	var (
		where []string
		args  []any
	)
	if filter.CriticalOnly {
		where = append(where, "has_critical = 1")
	}

	query := `
		SELECT id, source, created_at, completed_at,
			text_length, clause_count, entity_count, relationship_count,
			critical_issues, has_critical, errors, metadata, ''
		FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := dao.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list runs", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows.Scan, false)
		if err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to iterate runs", err)
	}
	return runs, nil
}

// Count returns the number of archived runs.
func (dao *RunDAO) Count(ctx context.Context) (int, error) {
	var n int
	if err := dao.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, types.WrapError(types.DB_QUERY_FAILED, "failed to count runs", err)
	}
	return n, nil
}

// Delete removes the run with id.
func (dao *RunDAO) Delete(ctx context.Context, id string) error {
	res, err := dao.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to delete run", err).WithDetail("run_id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to get rows affected", err)
	}
	if n == 0 {
		return types.NewError(types.DB_NOT_FOUND, "run not found").WithDetail("run_id", id)
	}
	return nil
}

// Prune deletes runs created before cutoff and returns how many were removed.
func (dao *RunDAO) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := dao.db.ExecContext(ctx, "DELETE FROM runs WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, types.WrapError(types.DB_QUERY_FAILED, "failed to prune runs", err)
	}
	return res.RowsAffected()
}

func scanRun(scan func(dest ...any) error, withReport bool) (*Run, error) {
	var (
		run          Run
		errorsJSON   string
		metadataJSON string
	)
	err := scan(
		&run.ID,
		&run.Source,
		&run.CreatedAt,
		&run.CompletedAt,
		&run.TextLength,
		&run.ClauseCount,
		&run.EntityCount,
		&run.RelationshipCount,
		&run.CriticalIssues,
		&run.HasCritical,
		&errorsJSON,
		&metadataJSON,
		&run.Report,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(errorsJSON), &run.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
	}
	if withReport {
		if err := json.Unmarshal([]byte(metadataJSON), &run.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &run, nil
}
