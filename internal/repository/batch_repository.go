package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/personal-context-builder/internal/models"
)

// BatchRepository records batch update runs
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Start records a new running batch
func (r *BatchRepository) Start(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO batch_runs (run_id, started_at) VALUES (?, ?)
	`, runID.String(), startedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create batch run: %w", err)
	}
	return nil
}

// Finish stores the outcome of a batch
func (r *BatchRepository) Finish(ctx context.Context, runID uuid.UUID, succeeded, failed int, finishedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE batch_runs
		SET finished_at = ?, succeeded = ?, failed = ?
		WHERE run_id = ?
	`, finishedAt.UnixMilli(), succeeded, failed, runID.String())
	if err != nil {
		return fmt.Errorf("failed to finish batch run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("batch run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// Get retrieves a batch run by ID
func (r *BatchRepository) Get(ctx context.Context, runID uuid.UUID) (*models.BatchRun, error) {
	var (
		id        string
		started   int64
		finished  sql.NullInt64
		succeeded int
		failed    int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, succeeded, failed
		FROM batch_runs
		WHERE run_id = ?
	`, runID.String()).Scan(&id, &started, &finished, &succeeded, &failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch run: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run id: %w", err)
	}

	run := &models.BatchRun{
		RunID:     parsed,
		StartedAt: time.UnixMilli(started).UTC(),
		Succeeded: succeeded,
		Failed:    failed,
	}
	if finished.Valid {
		t := time.UnixMilli(finished.Int64).UTC()
		run.FinishedAt = &t
	}
	return run, nil
}
