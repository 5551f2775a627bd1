package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlu-service/internal/core/domain"
)

const rasaJSON = `{
  "rasa_nlu_data": {
    "common_examples": [
      {"text": "hello", "intent": "greet", "entities": []},
      {"text": "fly to paris", "intent": "book_flight",
       "entities": [{"start": 7, "end": 12, "value": "paris", "entity": "city"}]}
    ]
  }
}`

const bareYAML = `
intents: [greet, goodbye]
examples:
  - text: hi
    intent: greet
  - text: bye
    intent: goodbye
`

const markdown = `## intent:greet
- hello
- hi there

## intent:book_flight
- fly to [Paris](city)
- book [new york](city:NYC) for [Zoë](person) please

## synonym:NYC
- big apple
`

func parse(t *testing.T, files ...domain.UploadFile) (*domain.Snapshot, error) {
	t.Helper()
	return New().Parse(context.Background(), domain.Upload{Files: files})
}

func TestParse_RasaJSON(t *testing.T) {
	s, err := parse(t, domain.UploadFile{Name: "data.json", Data: []byte(rasaJSON)})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"greet", "book_flight"}, s.Intents)
	require.Len(t, s.Examples, 2)
	assert.Equal(t, "paris", s.Examples[1].Entities[0].Value)
}

func TestParse_YAMLByContentType(t *testing.T) {
	s, err := parse(t, domain.UploadFile{ContentType: "application/x-yaml; charset=utf-8", Data: []byte(bareYAML)})
	require.NoError(t, err)

	assert.Equal(t, []string{"greet", "goodbye"}, s.Intents)
	assert.Len(t, s.Examples, 2)
}

func TestParse_Markdown(t *testing.T) {
	s, err := parse(t, domain.UploadFile{Name: "nlu.md", Data: []byte(markdown)})
	require.NoError(t, err)

	assert.Equal(t, []string{"greet", "book_flight"}, s.Intents)
	require.Len(t, s.Examples, 4)

	ex := s.Examples[3]
	assert.Equal(t, "book new york for Zoë please", ex.Text)
	assert.Equal(t, "book_flight", ex.Intent)
	assert.Equal(t, []domain.EntitySpan{
		{Start: 5, End: 13, Value: "NYC", Entity: "city"},
		{Start: 18, End: 21, Value: "Zoë", Entity: "person"},
	}, ex.Entities)
}

func TestParse_EntitySynonyms(t *testing.T) {
	const synonymJSON = `{"rasa_nlu_data": {"common_examples": [
	  {"text": "in the center of NYC", "intent": "search",
	   "entities": [{"start": 17, "end": 20, "value": "New York City", "entity": "city"}]}
	]}}`
	const synonymMarkdown = "## intent:search\n- in the center of [NYC](city:New York City)\n"

	want := []domain.EntitySpan{{Start: 17, End: 20, Value: "New York City", Entity: "city"}}
	for name, file := range map[string]domain.UploadFile{
		"rasa json": {Name: "nlu.json", Data: []byte(synonymJSON)},
		"markdown":  {Name: "nlu.md", Data: []byte(synonymMarkdown)},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := parse(t, file)
			require.NoError(t, err)
			require.Len(t, s.Examples, 1)
			assert.Equal(t, "in the center of NYC", s.Examples[0].Text)
			assert.Equal(t, want, s.Examples[0].Entities)
		})
	}
}

func TestParse_MergesFiles(t *testing.T) {
	s, err := parse(t,
		domain.UploadFile{Name: "a.json", Data: []byte(rasaJSON)},
		domain.UploadFile{Name: "b.yml", Data: []byte(bareYAML)},
	)
	require.NoError(t, err)

	assert.Len(t, s.Examples, 4)
	assert.ElementsMatch(t, []string{"greet", "goodbye", "book_flight"}, s.Intents)
}

func TestParse_SniffsBody(t *testing.T) {
	_, err := parse(t, domain.UploadFile{Data: []byte(rasaJSON)})
	assert.NoError(t, err)

	_, err = parse(t, domain.UploadFile{Data: []byte(markdown)})
	assert.NoError(t, err)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]struct {
		files []domain.UploadFile
		want  error
	}{
		"empty upload":   {want: domain.ErrBadInput},
		"unknown format": {files: []domain.UploadFile{{Name: "data.tsv", Data: []byte("hi\tgreet")}}, want: domain.ErrUnsupportedFormat},
		"broken json":    {files: []domain.UploadFile{{Name: "d.json", Data: []byte("{")}}, want: domain.ErrBadInput},
		"empty json":     {files: []domain.UploadFile{{Name: "d.json", Data: []byte("{}")}}, want: domain.ErrBadInput},
		"no examples":    {files: []domain.UploadFile{{Name: "d.yml", Data: []byte("intents: [a]")}}, want: domain.ErrBadInput},
		"bad span":       {files: []domain.UploadFile{{Name: "d.json", Data: []byte(`{"examples":[{"text":"hi","intent":"a","entities":[{"start":0,"end":9,"entity":"x"}]}]}`)}}, want: domain.ErrBadInput},
		"orphan example": {files: []domain.UploadFile{{Name: "d.md", Data: []byte("- hello")}}, want: domain.ErrBadInput},
		"bad header":     {files: []domain.UploadFile{{Name: "d.md", Data: []byte("# greetings\n- hello")}}, want: domain.ErrBadInput},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parse(t, tc.files...)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
