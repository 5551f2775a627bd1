package ports

import (
	"context"

	"nlu-service/internal/core/domain"
)

// TenantStore persists per-application state: the last trained snapshot and
// the model artifacts built from it.
//
// ReadSnapshot returns domain.ErrSnapshotNotFound when nothing was recorded.
// ReadArtifacts returns domain.ErrModelNotTrained when no artifacts exist and
// domain.ErrLoadFailed when they exist but cannot be decoded. Filesystem
// failures are reported as domain.ErrStorage.
type TenantStore interface {
	Exists(ctx context.Context, tenantID string) (bool, error)
	Create(ctx context.Context, tenantID string) error
	List(ctx context.Context) ([]string, error)

	ReadSnapshot(ctx context.Context, tenantID string) (*domain.Snapshot, error)
	WriteSnapshot(ctx context.Context, tenantID string, snapshot *domain.Snapshot) error
	ClearSnapshot(ctx context.Context, tenantID string) error

	ReadArtifacts(ctx context.Context, tenantID string) (*domain.ModelPair, error)
	WriteArtifacts(ctx context.Context, tenantID string, pair *domain.ModelPair) error

	Healthy(ctx context.Context) error
}
