package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"nlu-service/internal/core/domain"
	"nlu-service/internal/core/ports/output"
	"nlu-service/internal/metrics"
)

type LifecycleConfig struct {
	// TrainingTimeout bounds a single Trainer run; zero means no limit.
	TrainingTimeout time.Duration
	// RejectConcurrent makes an update fail with ErrTrainingInProgress instead
	// of waiting while another update holds the tenant.
	RejectConcurrent bool
}

type UpdateRequest struct {
	TenantID        string
	Upload          domain.Upload
	CreateIfMissing bool
	Force           bool
	// Async is accepted for compatibility; updates always run to completion
	// before returning.
	Async bool
}

type UpdateResult struct {
	TenantID       string
	Outcome        domain.TrainingOutcome
	SnapshotDigest string
}

// LifecycleService creates applications and turns uploaded training data into
// the live model pair, retraining only when the data actually changed.
type LifecycleService struct {
	store    ports.TenantStore
	parser   ports.Parser
	trainer  ports.Trainer
	cache    *ModelCache
	locks    *TenantLocks
	detector *ChangeDetector
	history  *TrainingRunService
	cfg      LifecycleConfig
}

func NewLifecycleService(
	store ports.TenantStore,
	parser ports.Parser,
	trainer ports.Trainer,
	cache *ModelCache,
	locks *TenantLocks,
	history *TrainingRunService,
	cfg LifecycleConfig,
) *LifecycleService {
	return &LifecycleService{
		store:    store,
		parser:   parser,
		trainer:  trainer,
		cache:    cache,
		locks:    locks,
		detector: NewChangeDetector(store),
		history:  history,
		cfg:      cfg,
	}
}

func (s *LifecycleService) CreateApplication(ctx context.Context) (string, error) {
	id := domain.NewTenantID()
	if err := s.store.Create(ctx, id); err != nil {
		return "", err
	}
	log.WithField("tenant_id", id).Info("application created")
	return id, nil
}

func (s *LifecycleService) UpdateApplication(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	if err := domain.ValidateTenantID(req.TenantID); err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{"tenant_id": req.TenantID, "force": req.Force})
	if req.Async {
		logger.Debug("async update requested; running synchronously")
	}

	exists, err := s.store.Exists(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		if !req.CreateIfMissing {
			return nil, domain.ErrTenantNotFound
		}
		if err := s.store.Create(ctx, req.TenantID); err != nil {
			return nil, err
		}
		logger.Info("application created on update")
	}

	snapshot, err := s.parser.Parse(ctx, req.Upload)
	if err != nil {
		if !errors.Is(err, domain.ErrBadInput) && !errors.Is(err, domain.ErrUnsupportedFormat) {
			err = fmt.Errorf("%w: %w", domain.ErrBadInput, err)
		}
		return nil, err
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	digest, err := snapshot.Digest()
	if err != nil {
		return nil, fmt.Errorf("%w: digest snapshot: %w", domain.ErrBadInput, err)
	}
	logger = logger.WithField("snapshot_digest", digest)

	unlock, err := s.lockTenant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	run := &domain.TrainingRun{
		ID:             uuid.New(),
		TenantID:       req.TenantID,
		SnapshotDigest: digest,
		Forced:         req.Force,
		StartedAt:      time.Now(),
	}

	if !req.Force {
		unchanged, err := s.detector.Unchanged(ctx, req.TenantID, snapshot)
		if err != nil {
			return nil, err
		}
		if unchanged {
			logger.Info("training data unchanged; skipping training")
			s.finish(ctx, run, domain.TrainingOutcomeSkipped, nil)
			return &UpdateResult{TenantID: req.TenantID, Outcome: domain.TrainingOutcomeSkipped, SnapshotDigest: digest}, nil
		}
	}

	if err := s.retrain(ctx, req.TenantID, snapshot, digest, logger); err != nil {
		logger.WithError(err).Error("application update failed")
		s.finish(ctx, run, domain.TrainingOutcomeFailed, err)
		return nil, err
	}

	s.finish(ctx, run, domain.TrainingOutcomeSucceeded, nil)
	return &UpdateResult{TenantID: req.TenantID, Outcome: domain.TrainingOutcomeSucceeded, SnapshotDigest: digest}, nil
}

// retrain must be called with the tenant lock held.
func (s *LifecycleService) retrain(ctx context.Context, tenantID string, snapshot *domain.Snapshot, digest string, logger *log.Entry) error {
	// No snapshot on disk while training, so an interrupted run can never be
	// mistaken for "unchanged".
	if err := s.store.ClearSnapshot(ctx, tenantID); err != nil {
		return err
	}

	logger.Info("training started")
	start := time.Now()
	trained, err := s.train(ctx, snapshot)
	if err != nil {
		return err
	}
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())

	pair := &domain.ModelPair{
		Classifier:     trained.Classifier,
		Extractor:      trained.Extractor,
		SnapshotDigest: digest,
		TrainedAt:      time.Now(),
	}
	if err := s.store.WriteArtifacts(ctx, tenantID, pair); err != nil {
		return err
	}
	s.cache.Put(tenantID, pair)
	if err := s.store.WriteSnapshot(ctx, tenantID, snapshot); err != nil {
		return err
	}

	logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("model installed")
	return nil
}

// train runs the Trainer detached from request cancellation, bounded only by
// the configured timeout.
func (s *LifecycleService) train(ctx context.Context, snapshot *domain.Snapshot) (*domain.ModelPair, error) {
	ctx = context.WithoutCancel(ctx)
	if s.cfg.TrainingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TrainingTimeout)
		defer cancel()
	}

	type result struct {
		pair *domain.ModelPair
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("trainer panic: %v", r)}
			}
		}()
		pair, err := s.trainer.Train(ctx, snapshot)
		done <- result{pair: pair, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrTrainingFailed, r.err)
		}
		if r.pair == nil {
			return nil, fmt.Errorf("%w: trainer returned no model", domain.ErrTrainingFailed)
		}
		return r.pair, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrTrainingFailed, ctx.Err())
	}
}

func (s *LifecycleService) lockTenant(ctx context.Context, tenantID string) (func(), error) {
	if s.cfg.RejectConcurrent {
		unlock, ok := s.locks.TryLock(tenantID)
		if !ok {
			return nil, domain.ErrTrainingInProgress
		}
		return unlock, nil
	}
	return s.locks.Lock(ctx, tenantID)
}

func (s *LifecycleService) finish(ctx context.Context, run *domain.TrainingRun, outcome domain.TrainingOutcome, err error) {
	run.Outcome = outcome
	run.FinishedAt = time.Now()
	if err != nil {
		run.Error = err.Error()
	}
	metrics.TrainingRunsTotal.WithLabelValues(strings.ToLower(string(outcome))).Inc()
	s.history.Record(ctx, run)
}
