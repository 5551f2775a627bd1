package domain

import (
	"time"

	"github.com/google/uuid"
)

type TrainingOutcome string

const (
	TrainingOutcomeSkipped   TrainingOutcome = "SKIPPED"
	TrainingOutcomeSucceeded TrainingOutcome = "SUCCEEDED"
	TrainingOutcomeFailed    TrainingOutcome = "FAILED"
)

// TrainingRun records one update request and what the coordinator did with it.
type TrainingRun struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       string          `json:"tenant_id"`
	SnapshotDigest string          `json:"snapshot_digest"`
	Outcome        TrainingOutcome `json:"outcome"`
	Forced         bool            `json:"forced"`
	Error          string          `json:"error,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

func (r *TrainingRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
