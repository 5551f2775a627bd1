package parser

import (
	"encoding/json"
	"errors"

	"nlu-service/internal/core/domain"
)

// document accepts both the bare snapshot shape and the rasa_nlu_data
// envelope with common_examples.
type document struct {
	Intents     []string         `json:"intents" yaml:"intents"`
	Examples    []domain.Example `json:"examples" yaml:"examples"`
	RasaNLUData *struct {
		CommonExamples []domain.Example `json:"common_examples" yaml:"common_examples"`
	} `json:"rasa_nlu_data" yaml:"rasa_nlu_data"`
}

func (d *document) snapshot() (*domain.Snapshot, error) {
	s := &domain.Snapshot{Intents: d.Intents, Examples: d.Examples}
	if d.RasaNLUData != nil {
		s.Examples = append(s.Examples, d.RasaNLUData.CommonExamples...)
	}
	if len(s.Examples) == 0 && len(s.Intents) == 0 {
		return nil, errors.New("no intents or examples found")
	}
	return s, nil
}

func decodeJSON(data []byte) (*domain.Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.snapshot()
}
