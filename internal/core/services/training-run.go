package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"nlu-service/internal/core/domain"
	"nlu-service/internal/core/ports/output"
)

const recordTimeout = 5 * time.Second

// TrainingRunService keeps the update history. A nil repository disables it:
// recording becomes a no-op and listing fails with ErrHistoryNotAvailable.
type TrainingRunService struct {
	repo ports.TrainingRunRepository
}

func NewTrainingRunService(repo ports.TrainingRunRepository) *TrainingRunService {
	return &TrainingRunService{repo: repo}
}

// Record stores run on a best-effort basis; failures are only logged.
func (s *TrainingRunService) Record(ctx context.Context, run *domain.TrainingRun) {
	if s == nil || s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, run); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"tenant_id": run.TenantID,
			"run_id":    run.ID,
		}).Warn("record training run failed")
	}
}

func (s *TrainingRunService) List(ctx context.Context, tenantID string, limit int) ([]*domain.TrainingRun, error) {
	if s == nil || s.repo == nil {
		return nil, domain.ErrHistoryNotAvailable
	}
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.ListByTenant(ctx, tenantID, limit)
}

func (s *TrainingRunService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Ping reports repository health; a disabled history is always healthy.
func (s *TrainingRunService) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.repo.Ping(ctx)
}
