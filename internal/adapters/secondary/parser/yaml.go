package parser

import (
	"gopkg.in/yaml.v3"

	"nlu-service/internal/core/domain"
)

func decodeYAML(data []byte) (*domain.Snapshot, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.snapshot()
}
