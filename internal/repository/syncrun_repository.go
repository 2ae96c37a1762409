package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"merchbase/internal/domain"
)

var (
	ErrSyncRunFinalized = errors.New("sync run already finalized")
)

// SyncRunRepository persists the append-only sync audit trail. Runs are
// inserted in-progress and finalized exactly once; finalized rows are never
// written again.
type SyncRunRepository interface {
	Create(ctx context.Context, run *domain.SyncRun) error
	Finalize(ctx context.Context, run *domain.SyncRun) error
	List(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

type syncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new instance of SyncRunRepository
func NewSyncRunRepository(db *sql.DB) SyncRunRepository {
	return &syncRunRepository{db: db}
}

// Create inserts the in-progress record for a starting run.
func (r *syncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, started_at, status, actor, source, clear_requested)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.StartedAt,
		run.Status,
		run.Actor,
		run.Source,
		run.ClearRequested,
	)

	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	return nil
}

// Finalize writes the terminal state of a run. The in-progress guard makes a
// second finalization fail with ErrSyncRunFinalized instead of rewriting
// history.
func (r *syncRunRepository) Finalize(ctx context.Context, run *domain.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET finished_at = $2,
		    status = $3,
		    products_processed = $4,
		    variants_processed = $5,
		    products_archived = $6,
		    variants_archived = $7,
		    error = $8
		WHERE id = $1 AND status = $9
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.FinishedAt,
		run.Status,
		run.ProductsProcessed,
		run.VariantsProcessed,
		run.ProductsArchived,
		run.VariantsArchived,
		run.Error,
		domain.SyncRunInProgress,
	)

	if err != nil {
		return fmt.Errorf("failed to finalize sync run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSyncRunFinalized
	}

	return nil
}

// List returns the most recent runs for operational dashboards.
func (r *syncRunRepository) List(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, started_at, finished_at, status, actor, source, clear_requested,
		       products_processed, variants_processed, products_archived, variants_archived, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	runs := []*domain.SyncRun{}
	for rows.Next() {
		run := &domain.SyncRun{}
		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Status,
			&run.Actor,
			&run.Source,
			&run.ClearRequested,
			&run.ProductsProcessed,
			&run.VariantsProcessed,
			&run.ProductsArchived,
			&run.VariantsArchived,
			&run.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}
