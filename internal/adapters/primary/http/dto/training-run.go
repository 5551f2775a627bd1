package dto

import (
	"time"

	"github.com/google/uuid"

	"nlu-service/internal/core/domain"
)

type TrainingRunResponse struct {
	ID             uuid.UUID `json:"id"`
	TenantID       string    `json:"tenant_id"`
	SnapshotDigest string    `json:"snapshot_digest"`
	Outcome        string    `json:"outcome"`
	Forced         bool      `json:"forced"`
	Error          string    `json:"error,omitempty"`
	StartedAt      string    `json:"started_at"`
	FinishedAt     string    `json:"finished_at"`
	DurationMs     int64     `json:"duration_ms"`
}

type ListTrainingRunsResponse struct {
	Items    []TrainingRunResponse `json:"items"`
	PageSize int                   `json:"page_size"`
}

func ToTrainingRunResponse(r *domain.TrainingRun) TrainingRunResponse {
	return TrainingRunResponse{
		ID:             r.ID,
		TenantID:       r.TenantID,
		SnapshotDigest: r.SnapshotDigest,
		Outcome:        string(r.Outcome),
		Forced:         r.Forced,
		Error:          r.Error,
		StartedAt:      r.StartedAt.Format(time.RFC3339),
		FinishedAt:     r.FinishedAt.Format(time.RFC3339),
		DurationMs:     r.Duration().Milliseconds(),
	}
}
