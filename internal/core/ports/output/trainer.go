package ports

import (
	"context"

	"nlu-service/internal/core/domain"
)

// ArtifactPaths are the directories a model pair is saved to and loaded from.
type ArtifactPaths struct {
	Classifier string
	Extractor  string
}

type ArtifactCodec interface {
	Save(pair *domain.ModelPair, paths ArtifactPaths) error
	// Load returns domain.ErrLoadFailed for unreadable or incompatible artifacts.
	Load(paths ArtifactPaths) (*domain.ModelPair, error)
}

// Trainer builds model pairs from snapshots and runs inference with them.
// Classify and Extract must be pure functions of the pair and utterance.
type Trainer interface {
	ArtifactCodec
	Train(ctx context.Context, snapshot *domain.Snapshot) (*domain.ModelPair, error)
	Classify(pair *domain.ModelPair, utterance string) (map[string]float64, error)
	Extract(pair *domain.ModelPair, utterance string) ([]domain.Entity, error)
}
