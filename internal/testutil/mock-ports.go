package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"nlu-service/internal/core/domain"
	"nlu-service/internal/core/ports/output"
)

// MockTrainer is a mock of Trainer.
type MockTrainer struct {
	mock.Mock
}

func (m *MockTrainer) Train(ctx context.Context, snapshot *domain.Snapshot) (*domain.ModelPair, error) {
	args := m.Called(ctx, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelPair), args.Error(1)
}

func (m *MockTrainer) Classify(pair *domain.ModelPair, utterance string) (map[string]float64, error) {
	args := m.Called(pair, utterance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *MockTrainer) Extract(pair *domain.ModelPair, utterance string) ([]domain.Entity, error) {
	args := m.Called(pair, utterance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Entity), args.Error(1)
}

func (m *MockTrainer) Save(pair *domain.ModelPair, paths ports.ArtifactPaths) error {
	args := m.Called(pair, paths)
	return args.Error(0)
}

func (m *MockTrainer) Load(paths ports.ArtifactPaths) (*domain.ModelPair, error) {
	args := m.Called(paths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelPair), args.Error(1)
}

// MockParser is a mock of Parser.
type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(ctx context.Context, upload domain.Upload) (*domain.Snapshot, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

// MockTrainingRunRepo is a mock of TrainingRunRepository.
type MockTrainingRunRepo struct {
	mock.Mock
}

func (m *MockTrainingRunRepo) Create(ctx context.Context, run *domain.TrainingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockTrainingRunRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.TrainingRun, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TrainingRun), args.Error(1)
}

func (m *MockTrainingRunRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockTenantStore is a mock of TenantStore.
type MockTenantStore struct {
	mock.Mock
}

func (m *MockTenantStore) Exists(ctx context.Context, tenantID string) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantStore) Create(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockTenantStore) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTenantStore) ReadSnapshot(ctx context.Context, tenantID string) (*domain.Snapshot, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockTenantStore) WriteSnapshot(ctx context.Context, tenantID string, snapshot *domain.Snapshot) error {
	args := m.Called(ctx, tenantID, snapshot)
	return args.Error(0)
}

func (m *MockTenantStore) ClearSnapshot(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockTenantStore) ReadArtifacts(ctx context.Context, tenantID string) (*domain.ModelPair, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelPair), args.Error(1)
}

func (m *MockTenantStore) WriteArtifacts(ctx context.Context, tenantID string, pair *domain.ModelPair) error {
	args := m.Called(ctx, tenantID, pair)
	return args.Error(0)
}

func (m *MockTenantStore) Healthy(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
