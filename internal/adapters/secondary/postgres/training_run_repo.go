package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nlu-service/internal/core/domain"
	output "nlu-service/internal/core/ports/output"
)

type trainingRunRepo struct {
	pool *pgxpool.Pool
}

// NewTrainingRunRepository creates a new TrainingRunRepository
func NewTrainingRunRepository(pool *pgxpool.Pool) output.TrainingRunRepository {
	return &trainingRunRepo{pool: pool}
}

func (r *trainingRunRepo) Create(ctx context.Context, run *domain.TrainingRun) error {
	query := `
		INSERT INTO training_run
			(id, tenant_id, snapshot_digest, outcome, forced, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.TenantID, run.SnapshotDigest, string(run.Outcome),
		run.Forced, run.Error, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("create training run: %w", err)
	}
	return nil
}

func (r *trainingRunRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.TrainingRun, error) {
	query := `
		SELECT id, tenant_id, snapshot_digest, outcome, forced, error, started_at, finished_at
		FROM training_run
		WHERE tenant_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list training runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, scanTrainingRun)
	if err != nil {
		return nil, fmt.Errorf("scan training runs: %w", err)
	}
	return runs, nil
}

func (r *trainingRunRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanTrainingRun(row pgx.CollectableRow) (*domain.TrainingRun, error) {
	var run domain.TrainingRun
	var outcome string
	err := row.Scan(
		&run.ID, &run.TenantID, &run.SnapshotDigest, &outcome,
		&run.Forced, &run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Outcome = domain.TrainingOutcome(outcome)
	return &run, nil
}
