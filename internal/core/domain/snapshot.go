package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Snapshot is the parsed training data of one application: the declared
// intents plus the labeled example utterances.
type Snapshot struct {
	Intents  []string  `json:"intents" yaml:"intents"`
	Examples []Example `json:"examples" yaml:"examples"`
}

type Example struct {
	Text     string       `json:"text" yaml:"text"`
	Intent   string       `json:"intent" yaml:"intent"`
	Entities []EntitySpan `json:"entities" yaml:"entities"`
}

// EntitySpan marks Text[Start:End] (rune offsets) as an instance of Entity.
// Value is the normalised value the span resolves to; it may be a synonym
// that differs from the covered text.
type EntitySpan struct {
	Start  int    `json:"start" yaml:"start"`
	End    int    `json:"end" yaml:"end"`
	Value  string `json:"value" yaml:"value"`
	Entity string `json:"entity" yaml:"entity"`
}

// Validate checks the snapshot and fills in derivable fields: missing entity
// values are taken from the example text and intents used by examples are
// added to the intent set. Intent names are kept exactly as given.
func (s *Snapshot) Validate() error {
	if len(s.Examples) == 0 {
		return fmt.Errorf("%w: no examples", ErrBadInput)
	}

	declared := make(map[string]bool, len(s.Intents))
	for i, name := range s.Intents {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: intent %d has no name", ErrBadInput, i)
		}
		declared[name] = true
	}

	for i := range s.Examples {
		ex := &s.Examples[i]
		if strings.TrimSpace(ex.Text) == "" {
			return fmt.Errorf("%w: example %d has no text", ErrBadInput, i)
		}
		if strings.TrimSpace(ex.Intent) == "" {
			return fmt.Errorf("%w: example %d has no intent", ErrBadInput, i)
		}
		if !declared[ex.Intent] {
			declared[ex.Intent] = true
			s.Intents = append(s.Intents, ex.Intent)
		}

		runes := []rune(ex.Text)
		for j := range ex.Entities {
			span := &ex.Entities[j]
			if span.Entity == "" {
				return fmt.Errorf("%w: example %d entity %d has no label", ErrBadInput, i, j)
			}
			if span.Start < 0 || span.End <= span.Start || span.End > len(runes) {
				return fmt.Errorf("%w: example %d entity %q has span [%d,%d) outside text", ErrBadInput, i, span.Entity, span.Start, span.End)
			}
			if span.Value == "" {
				span.Value = string(runes[span.Start:span.End])
			}
		}
	}
	return nil
}

// Covered returns the surface text a span marks in the example.
func (e Example) Covered(span EntitySpan) string {
	runes := []rune(e.Text)
	if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
		return ""
	}
	return string(runes[span.Start:span.End])
}

// Canonical returns a copy with every unordered collection in a fixed order:
// intents deduplicated and sorted, entities sorted by position, examples
// sorted by their own encoding.
func (s *Snapshot) Canonical() *Snapshot {
	out := &Snapshot{
		Intents:  make([]string, 0, len(s.Intents)),
		Examples: make([]Example, len(s.Examples)),
	}

	seen := make(map[string]bool, len(s.Intents))
	for _, name := range s.Intents {
		if !seen[name] {
			seen[name] = true
			out.Intents = append(out.Intents, name)
		}
	}
	sort.Strings(out.Intents)

	keys := make([]string, len(s.Examples))
	for i, ex := range s.Examples {
		entities := make([]EntitySpan, len(ex.Entities))
		copy(entities, ex.Entities)
		sort.Slice(entities, func(a, b int) bool {
			x, y := entities[a], entities[b]
			if x.Start != y.Start {
				return x.Start < y.Start
			}
			if x.End != y.End {
				return x.End < y.End
			}
			if x.Entity != y.Entity {
				return x.Entity < y.Entity
			}
			return x.Value < y.Value
		})
		out.Examples[i] = Example{Text: ex.Text, Intent: ex.Intent, Entities: entities}
		b, _ := json.Marshal(out.Examples[i])
		keys[i] = string(b)
	}
	sort.Sort(byKey{examples: out.Examples, keys: keys})

	return out
}

// CanonicalBytes is the serialization two snapshots are compared by.
func (s *Snapshot) CanonicalBytes() ([]byte, error) {
	return json.Marshal(s.Canonical())
}

// Digest is the hex sha256 of CanonicalBytes.
func (s *Snapshot) Digest() (string, error) {
	b, err := s.CanonicalBytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Equal reports whether two snapshots have the same canonical form.
func (s *Snapshot) Equal(other *Snapshot) (bool, error) {
	a, err := s.CanonicalBytes()
	if err != nil {
		return false, err
	}
	b, err := other.CanonicalBytes()
	if err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}

type byKey struct {
	examples []Example
	keys     []string
}

func (b byKey) Len() int           { return len(b.examples) }
func (b byKey) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b byKey) Swap(i, j int) {
	b.examples[i], b.examples[j] = b.examples[j], b.examples[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}
