package ports

import (
	"context"

	"nlu-service/internal/core/domain"
)

type TrainingRunRepository interface {
	Create(ctx context.Context, run *domain.TrainingRun) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.TrainingRun, error)
	Ping(ctx context.Context) error
}
