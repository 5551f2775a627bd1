package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const trainingRunSchema = `
	CREATE TABLE IF NOT EXISTS training_run (
		id              UUID PRIMARY KEY,
		tenant_id       TEXT        NOT NULL,
		snapshot_digest TEXT        NOT NULL,
		outcome         TEXT        NOT NULL,
		forced          BOOLEAN     NOT NULL DEFAULT FALSE,
		error           TEXT        NOT NULL DEFAULT '',
		started_at      TIMESTAMPTZ NOT NULL,
		finished_at     TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS training_run_tenant_started_idx
		ON training_run (tenant_id, started_at DESC);
`

// EnsureSchema creates the history tables when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, trainingRunSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
