package domain

import "time"

// ModelPair is the classifier and entity extractor trained from one snapshot.
// Classifier and Extractor are opaque to everything except the Trainer that
// produced them. A pair is immutable once built.
type ModelPair struct {
	Classifier     any
	Extractor      any
	SnapshotDigest string
	TrainedAt      time.Time
}

// Entity is one extracted span, in utterance order.
type Entity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Prediction is the combined classifier and extractor output for one utterance.
type Prediction struct {
	Categories map[string]float64 `json:"categories"`
	Entities   []Entity           `json:"entities"`
}
