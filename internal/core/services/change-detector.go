package services

import (
	"context"
	"errors"

	"nlu-service/internal/core/domain"
	"nlu-service/internal/core/ports/output"
)

// ChangeDetector compares new training data with the last snapshot that was
// trained successfully for a tenant.
type ChangeDetector struct {
	store ports.TenantStore
}

func NewChangeDetector(store ports.TenantStore) *ChangeDetector {
	return &ChangeDetector{store: store}
}

// Unchanged reports whether snapshot is canonically equal to the persisted
// one. It is false when nothing is persisted.
func (d *ChangeDetector) Unchanged(ctx context.Context, tenantID string, snapshot *domain.Snapshot) (bool, error) {
	previous, err := d.store.ReadSnapshot(ctx, tenantID)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return previous.Equal(snapshot)
}
