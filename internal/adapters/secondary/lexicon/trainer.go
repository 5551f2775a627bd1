// Package lexicon is the built-in Trainer: a multinomial naive Bayes intent
// classifier over word tokens and a gazetteer entity extractor built from the
// annotated entity values. Both are deterministic for fixed artifacts.
package lexicon

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nlu-service/internal/core/domain"
	ports "nlu-service/internal/core/ports/output"
)

const (
	formatVersion = 1
	modelFile     = "model.json"
)

type classifierModel struct {
	Version       int                       `json:"version"`
	Intents       []string                  `json:"intents"`
	ExampleCounts map[string]int            `json:"example_counts"`
	TokenCounts   map[string]map[string]int `json:"token_counts"`
	TokenTotals   map[string]int            `json:"token_totals"`
	Vocabulary    int                       `json:"vocabulary"`
	TotalExamples int                       `json:"total_examples"`
}

type gazetteerEntry struct {
	Phrase string `json:"phrase"`
	Label  string `json:"label"`
}

type extractorModel struct {
	Version   int              `json:"version"`
	Entries   []gazetteerEntry `json:"entries"`
	MaxTokens int              `json:"max_tokens"`

	index map[string]string
}

type Trainer struct{}

func NewTrainer() *Trainer {
	return &Trainer{}
}

var _ ports.Trainer = (*Trainer)(nil)

func (t *Trainer) Train(ctx context.Context, snapshot *domain.Snapshot) (*domain.ModelPair, error) {
	canonical := snapshot.Canonical()
	if len(canonical.Examples) == 0 {
		return nil, fmt.Errorf("no examples to train on")
	}

	clf := &classifierModel{
		Version:       formatVersion,
		Intents:       canonical.Intents,
		ExampleCounts: make(map[string]int),
		TokenCounts:   make(map[string]map[string]int),
		TokenTotals:   make(map[string]int),
		TotalExamples: len(canonical.Examples),
	}
	vocab := make(map[string]bool)

	// label votes per phrase; ties go to the smaller label
	votes := make(map[string]map[string]int)

	for i, ex := range canonical.Examples {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		clf.ExampleCounts[ex.Intent]++
		counts, ok := clf.TokenCounts[ex.Intent]
		if !ok {
			counts = make(map[string]int)
			clf.TokenCounts[ex.Intent] = counts
		}
		for _, tok := range tokenize(ex.Text) {
			counts[tok.text]++
			clf.TokenTotals[ex.Intent]++
			vocab[tok.text] = true
		}

		for _, span := range ex.Entities {
			phrase := phraseKey(ex.Covered(span))
			if phrase == "" {
				continue
			}
			if votes[phrase] == nil {
				votes[phrase] = make(map[string]int)
			}
			votes[phrase][span.Entity]++
		}
	}
	clf.Vocabulary = len(vocab)

	ext := &extractorModel{Version: formatVersion}
	for phrase, labels := range votes {
		best, bestVotes := "", -1
		for label, n := range labels {
			if n > bestVotes || (n == bestVotes && label < best) {
				best, bestVotes = label, n
			}
		}
		ext.Entries = append(ext.Entries, gazetteerEntry{Phrase: phrase, Label: best})
	}
	sort.Slice(ext.Entries, func(i, j int) bool { return ext.Entries[i].Phrase < ext.Entries[j].Phrase })
	ext.buildIndex()

	return &domain.ModelPair{Classifier: clf, Extractor: ext}, nil
}

func (t *Trainer) Classify(pair *domain.ModelPair, utterance string) (map[string]float64, error) {
	clf, ok := pair.Classifier.(*classifierModel)
	if !ok {
		return nil, fmt.Errorf("incompatible classifier %T", pair.Classifier)
	}

	tokens := tokenize(utterance)
	scores := make([]float64, len(clf.Intents))
	maxScore := math.Inf(-1)
	for i, intent := range clf.Intents {
		prior := float64(clf.ExampleCounts[intent]+1) / float64(clf.TotalExamples+len(clf.Intents))
		score := math.Log(prior)
		denom := float64(clf.TokenTotals[intent] + clf.Vocabulary + 1)
		for _, tok := range tokens {
			score += math.Log(float64(clf.TokenCounts[intent][tok.text]+1) / denom)
		}
		scores[i] = score
		if score > maxScore {
			maxScore = score
		}
	}

	var sum float64
	for i := range scores {
		scores[i] = math.Exp(scores[i] - maxScore)
		sum += scores[i]
	}
	out := make(map[string]float64, len(clf.Intents))
	for i, intent := range clf.Intents {
		out[intent] = scores[i] / sum
	}
	return out, nil
}

func (t *Trainer) Extract(pair *domain.ModelPair, utterance string) ([]domain.Entity, error) {
	ext, ok := pair.Extractor.(*extractorModel)
	if !ok {
		return nil, fmt.Errorf("incompatible extractor %T", pair.Extractor)
	}

	tokens := tokenize(utterance)
	entities := []domain.Entity{}
	for i := 0; i < len(tokens); {
		matched := 0
		for n := min(ext.MaxTokens, len(tokens)-i); n > 0; n-- {
			words := make([]string, n)
			for k := 0; k < n; k++ {
				words[k] = tokens[i+k].text
			}
			if label, ok := ext.index[strings.Join(words, " ")]; ok {
				entities = append(entities, domain.Entity{
					Label: label,
					Text:  utterance[tokens[i].start:tokens[i+n-1].end],
				})
				matched = n
				break
			}
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
	return entities, nil
}

func (t *Trainer) Save(pair *domain.ModelPair, paths ports.ArtifactPaths) error {
	if _, ok := pair.Classifier.(*classifierModel); !ok {
		return fmt.Errorf("incompatible classifier %T", pair.Classifier)
	}
	if _, ok := pair.Extractor.(*extractorModel); !ok {
		return fmt.Errorf("incompatible extractor %T", pair.Extractor)
	}
	if err := writeJSON(filepath.Join(paths.Classifier, modelFile), pair.Classifier); err != nil {
		return fmt.Errorf("save classifier: %w", err)
	}
	if err := writeJSON(filepath.Join(paths.Extractor, modelFile), pair.Extractor); err != nil {
		return fmt.Errorf("save extractor: %w", err)
	}
	return nil
}

func (t *Trainer) Load(paths ports.ArtifactPaths) (*domain.ModelPair, error) {
	var clf classifierModel
	if err := readJSON(filepath.Join(paths.Classifier, modelFile), &clf); err != nil {
		return nil, fmt.Errorf("%w: classifier: %w", domain.ErrLoadFailed, err)
	}
	if clf.Version != formatVersion {
		return nil, fmt.Errorf("%w: classifier format version %d, want %d", domain.ErrLoadFailed, clf.Version, formatVersion)
	}
	if len(clf.Intents) == 0 {
		return nil, fmt.Errorf("%w: classifier has no intents", domain.ErrLoadFailed)
	}

	var ext extractorModel
	if err := readJSON(filepath.Join(paths.Extractor, modelFile), &ext); err != nil {
		return nil, fmt.Errorf("%w: extractor: %w", domain.ErrLoadFailed, err)
	}
	if ext.Version != formatVersion {
		return nil, fmt.Errorf("%w: extractor format version %d, want %d", domain.ErrLoadFailed, ext.Version, formatVersion)
	}
	ext.buildIndex()

	return &domain.ModelPair{Classifier: &clf, Extractor: &ext}, nil
}

func (e *extractorModel) buildIndex() {
	e.index = make(map[string]string, len(e.Entries))
	e.MaxTokens = 0
	for _, entry := range e.Entries {
		e.index[entry.Phrase] = entry.Label
		if n := len(strings.Fields(entry.Phrase)); n > e.MaxTokens {
			e.MaxTokens = n
		}
	}
}

func phraseKey(s string) string {
	tokens := tokenize(s)
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = tok.text
	}
	return strings.Join(words, " ")
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
