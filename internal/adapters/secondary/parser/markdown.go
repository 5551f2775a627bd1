package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"nlu-service/internal/core/domain"
)

// Markdown training data:
//
//	## intent:book_flight
//	- fly to [Paris](city)
//	- book a flight to [new york](city:NYC)
//
// Sections other than intent (synonym, regex, lookup) are skipped.
var (
	sectionRe    = regexp.MustCompile(`^##\s*([a-z_]+)\s*:\s*(.+?)\s*$`)
	annotationRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

func decodeMarkdown(data []byte) (*domain.Snapshot, error) {
	s := &domain.Snapshot{}
	intent := ""
	skipping := false

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "<!--"):
			continue

		case strings.HasPrefix(line, "#"):
			m := sectionRe.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("line %d: malformed section header %q", lineNo, line)
			}
			if m[1] == "intent" {
				intent, skipping = m[2], false
				s.Intents = append(s.Intents, intent)
			} else {
				intent, skipping = "", true
			}

		case strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*"):
			if skipping {
				continue
			}
			if intent == "" {
				return nil, fmt.Errorf("line %d: example outside an intent section", lineNo)
			}
			ex, err := parseAnnotated(strings.TrimSpace(line[1:]))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			ex.Intent = intent
			s.Examples = append(s.Examples, ex)

		default:
			if !skipping {
				return nil, fmt.Errorf("line %d: unexpected content %q", lineNo, line)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(s.Intents) == 0 {
		return nil, fmt.Errorf("no intent sections found")
	}
	return s, nil
}

// parseAnnotated strips [text](entity) and [text](entity:value) markup,
// recording each annotation's rune span in the resulting text. The value after
// the colon is the synonym the span resolves to.
func parseAnnotated(raw string) (domain.Example, error) {
	var (
		text     strings.Builder
		entities []domain.EntitySpan
		last     int
	)
	for _, m := range annotationRe.FindAllStringSubmatchIndex(raw, -1) {
		text.WriteString(raw[last:m[0]])
		covered := raw[m[2]:m[3]]
		label, value := raw[m[4]:m[5]], covered
		if i := strings.IndexByte(label, ':'); i >= 0 {
			if synonym := strings.TrimSpace(label[i+1:]); synonym != "" {
				value = synonym
			}
			label = label[:i]
		}
		label = strings.TrimSpace(label)
		if label == "" {
			return domain.Example{}, fmt.Errorf("entity %q has no label", covered)
		}

		start := utf8.RuneCountInString(text.String())
		text.WriteString(covered)
		entities = append(entities, domain.EntitySpan{
			Start:  start,
			End:    start + utf8.RuneCountInString(covered),
			Value:  value,
			Entity: label,
		})
		last = m[1]
	}
	text.WriteString(raw[last:])

	if strings.TrimSpace(text.String()) == "" {
		return domain.Example{}, fmt.Errorf("empty example")
	}
	return domain.Example{Text: text.String(), Entities: entities}, nil
}
