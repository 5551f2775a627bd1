package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"nlu-service/internal/core/domain"
	"nlu-service/internal/core/ports/output"
)

// QueryService answers utterance queries with an application's live model
// pair, loading persisted artifacts when the pair is not in memory. It never
// writes to the store or trains.
type QueryService struct {
	store   ports.TenantStore
	trainer ports.Trainer
	cache   *ModelCache
	locks   *TenantLocks
}

func NewQueryService(store ports.TenantStore, trainer ports.Trainer, cache *ModelCache, locks *TenantLocks) *QueryService {
	return &QueryService{store: store, trainer: trainer, cache: cache, locks: locks}
}

func (s *QueryService) Query(ctx context.Context, tenantID, utterance string) (*domain.Prediction, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(utterance) == "" {
		return nil, domain.ErrEmptyQuery
	}

	pair, err := s.Model(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	categories, err := s.trainer.Classify(pair, utterance)
	if err != nil {
		return nil, fmt.Errorf("%w: classify: %w", domain.ErrInference, err)
	}
	entities, err := s.trainer.Extract(pair, utterance)
	if err != nil {
		return nil, fmt.Errorf("%w: extract: %w", domain.ErrInference, err)
	}
	if entities == nil {
		entities = []domain.Entity{}
	}

	return &domain.Prediction{Categories: categories, Entities: entities}, nil
}

// Model returns the live pair for tenantID. Loading from disk takes the
// tenant lock so it cannot interleave with an install.
func (s *QueryService) Model(ctx context.Context, tenantID string) (*domain.ModelPair, error) {
	if pair, ok := s.cache.Get(tenantID); ok {
		return pair, nil
	}

	exists, err := s.store.Exists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrTenantNotFound
	}

	return s.cache.GetOrLoad(ctx, tenantID, func(ctx context.Context) (*domain.ModelPair, error) {
		unlock, err := s.locks.Lock(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		defer unlock()

		pair, err := s.store.ReadArtifacts(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"tenant_id":       tenantID,
			"snapshot_digest": pair.SnapshotDigest,
		}).Info("model loaded from storage")
		return pair, nil
	})
}

// Warm loads every trained application into the cache, at most concurrency
// at a time. Applications without artifacts are skipped and load failures
// are logged; only listing the store can fail the call.
func (s *QueryService) Warm(ctx context.Context, concurrency int) (int, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	loaded := make(chan struct{}, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := s.Model(gctx, id)
			switch {
			case err == nil:
				loaded <- struct{}{}
			case errors.Is(err, domain.ErrModelNotTrained):
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				log.WithError(err).WithField("tenant_id", id).Warn("warm model cache failed")
			}
			return nil
		})
	}
	err = g.Wait()
	close(loaded)
	return len(loaded), err
}
