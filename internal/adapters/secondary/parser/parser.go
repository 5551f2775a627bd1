package parser

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"nlu-service/internal/core/domain"
	ports "nlu-service/internal/core/ports/output"
)

type format string

const (
	formatJSON     format = "json"
	formatYAML     format = "yaml"
	formatMarkdown format = "markdown"
)

type decoder func(data []byte) (*domain.Snapshot, error)

// Parser decodes uploaded training files and merges them into one snapshot.
type Parser struct {
	decoders map[format]decoder
}

func New() *Parser {
	return &Parser{decoders: map[format]decoder{
		formatJSON:     decodeJSON,
		formatYAML:     decodeYAML,
		formatMarkdown: decodeMarkdown,
	}}
}

var _ ports.Parser = (*Parser)(nil)

func (p *Parser) Parse(ctx context.Context, upload domain.Upload) (*domain.Snapshot, error) {
	if len(upload.Files) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrBadInput)
	}

	merged := &domain.Snapshot{}
	for _, f := range upload.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := f.Name
		if name == "" {
			name = "body"
		}

		fmtName, err := detectFormat(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, name)
		}
		s, err := p.decoders[fmtName](f.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrBadInput, name, err)
		}
		merged.Intents = append(merged.Intents, s.Intents...)
		merged.Examples = append(merged.Examples, s.Examples...)
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func detectFormat(f domain.UploadFile) (format, error) {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".json":
		return formatJSON, nil
	case ".yml", ".yaml":
		return formatYAML, nil
	case ".md", ".markdown":
		return formatMarkdown, nil
	}

	if mediaType, _, err := mime.ParseMediaType(f.ContentType); err == nil {
		switch mediaType {
		case "application/json":
			return formatJSON, nil
		case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
			return formatYAML, nil
		case "text/markdown", "text/x-markdown":
			return formatMarkdown, nil
		}
	}

	trimmed := bytes.TrimSpace(f.Data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		return formatJSON, nil
	case bytes.HasPrefix(trimmed, []byte("##")):
		return formatMarkdown, nil
	}
	return "", domain.ErrUnsupportedFormat
}
