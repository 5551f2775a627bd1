package dto

import (
	"nlu-service/internal/core/domain"
	"nlu-service/internal/core/services"
)

type ApplicationResponse struct {
	ID string `json:"id"`
}

type UpdateApplicationResponse struct {
	ID             string `json:"id"`
	Outcome        string `json:"outcome"`
	SnapshotDigest string `json:"snapshot_digest"`
}

type QueryRequest struct {
	Query string `json:"query"`
}

type EntityResponse struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type PredictionResponse struct {
	Categories map[string]float64 `json:"categories"`
	Entities   []EntityResponse   `json:"entities"`
}

func ToUpdateApplicationResponse(r *services.UpdateResult) UpdateApplicationResponse {
	return UpdateApplicationResponse{
		ID:             r.TenantID,
		Outcome:        string(r.Outcome),
		SnapshotDigest: r.SnapshotDigest,
	}
}

func ToPredictionResponse(p *domain.Prediction) PredictionResponse {
	entities := make([]EntityResponse, 0, len(p.Entities))
	for _, e := range p.Entities {
		entities = append(entities, EntityResponse{Label: e.Label, Text: e.Text})
	}
	categories := p.Categories
	if categories == nil {
		categories = map[string]float64{}
	}
	return PredictionResponse{Categories: categories, Entities: entities}
}
