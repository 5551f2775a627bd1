package ports

import (
	"context"

	"nlu-service/internal/core/domain"
)

// Parser turns a raw upload into a snapshot, failing with domain.ErrBadInput.
type Parser interface {
	Parse(ctx context.Context, upload domain.Upload) (*domain.Snapshot, error)
}
