package process

import (
	"context"
	"errors"
	"testing"

	"ewintr.nl/eduvid/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
	json     []bool
}

func (fg *fakeGenerator) Name() string {
	return "fake"
}

func (fg *fakeGenerator) Generate(_ context.Context, prompt string, json bool) (string, error) {
	fg.prompts = append(fg.prompts, prompt)
	fg.json = append(fg.json, json)
	return fg.response, fg.err
}

const threeConcepts = `[
  {"conceptTitle": "Inertia", "reference": "NCERT Class 9 Science, 9.2", "description": "Objects resist changes in motion."},
  {"conceptTitle": "Force", "reference": "NCERT Class 9 Science, 9.1", "description": "A push or pull on an object."},
  {"conceptTitle": "Momentum", "reference": "NCERT Class 9 Science, 9.4", "description": "Mass times velocity."}
]`

func TestParseConcepts(t *testing.T) {
	for _, tc := range []struct {
		name     string
		payload  string
		expTitle []string
		expErr   bool
	}{
		{
			name:     "array",
			payload:  threeConcepts,
			expTitle: []string{"Inertia", "Force", "Momentum"},
		},
		{
			name:     "wrapped in object",
			payload:  `{"concepts": ` + threeConcepts + `}`,
			expTitle: []string{"Inertia", "Force", "Momentum"},
		},
		{
			name:     "wrapped with other fields",
			payload:  `{"count": 3, "note": null, "concepts": ` + threeConcepts + `}`,
			expTitle: []string{"Inertia", "Force", "Momentum"},
		},
		{
			name:     "wrapped next to other arrays",
			payload:  `{"concepts": ` + threeConcepts + `, "warnings": [], "tags": ["physics", "motion"], "sources": [{"url": "u"}]}`,
			expTitle: []string{"Inertia", "Force", "Momentum"},
		},
		{
			name:     "code fence",
			payload:  "```json\n" + threeConcepts + "\n```",
			expTitle: []string{"Inertia", "Force", "Momentum"},
		},
		{
			name: "too many",
			payload: `[
{"conceptTitle":"1","reference":"r","description":"d"},
{"conceptTitle":"2","reference":"r","description":"d"},
{"conceptTitle":"3","reference":"r","description":"d"},
{"conceptTitle":"4","reference":"r","description":"d"},
{"conceptTitle":"5","reference":"r","description":"d"},
{"conceptTitle":"6","reference":"r","description":"d"}]`,
			expTitle: []string{"1", "2", "3", "4", "5"},
		},
		{
			name:    "too few",
			payload: `[{"conceptTitle":"1","reference":"r","description":"d"}]`,
			expErr:  true,
		},
		{
			name: "missing key",
			payload: `[
{"conceptTitle":"1","reference":"r","description":"d"},
{"conceptTitle":"2","description":"d"},
{"conceptTitle":"3","reference":"r","description":"d"}]`,
			expErr: true,
		},
		{
			name: "wrong type",
			payload: `[
{"conceptTitle":"1","reference":"r","description":"d"},
{"conceptTitle":2,"reference":"r","description":"d"},
{"conceptTitle":"3","reference":"r","description":"d"}]`,
			expErr: true,
		},
		{
			name:    "two arrays",
			payload: `{"a": ` + threeConcepts + `, "b": ` + threeConcepts + `}`,
			expErr:  true,
		},
		{
			name:    "prose",
			payload: "Here are the concepts: Inertia, Force and Momentum.",
			expErr:  true,
		},
		{
			name:    "broken json",
			payload: `[{"conceptTitle": "Inertia"`,
			expErr:  true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			act, err := ParseConcepts(tc.payload, DefaultKeys, DefaultMinConcepts, DefaultMaxConcepts)
			if tc.expErr {
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			titles := make([]string, 0, len(act))
			for _, c := range act {
				assert.True(t, c.Complete())
				titles = append(titles, c.Title)
			}
			assert.Equal(t, tc.expTitle, titles)
		})
	}
}

func TestConceptExtractor(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gen := &fakeGenerator{response: threeConcepts}
		ce := NewConceptExtractor(gen, NewPromptBuilder(0))

		act, err := ce.Extract(context.Background(), "a transcript about motion")
		require.NoError(t, err)
		assert.Equal(t, model.Concept{
			Title:       "Inertia",
			Reference:   "NCERT Class 9 Science, 9.2",
			Description: "Objects resist changes in motion.",
		}, act[0])
		require.Len(t, gen.prompts, 1)
		assert.Equal(t, "a transcript about motion", embeddedText(gen.prompts[0]))
		assert.Equal(t, []bool{true}, gen.json)
	})

	t.Run("upstream error", func(t *testing.T) {
		gen := &fakeGenerator{err: &UpstreamError{StatusCode: 429, Body: "quota"}}
		ce := NewConceptExtractor(gen, NewPromptBuilder(0))

		_, err := ce.Extract(context.Background(), "text")
		assert.ErrorIs(t, err, ErrUpstream)
		assert.False(t, errors.Is(err, ErrMalformedOutput))
		var upErr *UpstreamError
		require.True(t, errors.As(err, &upErr))
		assert.Equal(t, 429, upErr.StatusCode)
	})

	t.Run("malformed", func(t *testing.T) {
		gen := &fakeGenerator{response: "not json"}
		ce := NewConceptExtractor(gen, NewPromptBuilder(0))

		_, err := ce.Extract(context.Background(), "text")
		assert.ErrorIs(t, err, ErrMalformedOutput)
		assert.False(t, errors.Is(err, ErrUpstream))
	})
}
