package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ewintr.nl/eduvid/model"
)

type ConceptExtractor struct {
	generator Generator
	prompts   PromptBuilder
}

func NewConceptExtractor(generator Generator, prompts PromptBuilder) *ConceptExtractor {
	return &ConceptExtractor{
		generator: generator,
		prompts:   prompts,
	}
}

// Extract asks the model for concepts in the source text. Transport errors
// match ErrUpstream, output that does not follow the requested structure
// matches ErrMalformedOutput.
func (ce *ConceptExtractor) Extract(ctx context.Context, text string) ([]model.Concept, error) {
	payload, err := ce.generator.Generate(ctx, ce.prompts.Build(text), true)
	if err != nil {
		return nil, err
	}

	return ParseConcepts(payload, ce.prompts.Keys, ce.prompts.MinConcepts, ce.prompts.MaxConcepts)
}

// ParseConcepts reads a JSON array of concept objects, or an object that
// wraps exactly one such array next to any other fields. Every object needs all three keys with
// non-empty strings. Records after maxCount are dropped.
func ParseConcepts(payload string, keys Keys, minCount, maxCount int) ([]model.Concept, error) {
	raw := []byte(stripFence(payload))

	var records []map[string]any
	switch {
	case bytes.HasPrefix(raw, []byte("[")):
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	case bytes.HasPrefix(raw, []byte("{")):
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		found := 0
		for _, v := range wrapper {
			var candidate []map[string]any
			if err := json.Unmarshal(v, &candidate); err != nil || !hasKey(candidate, keys.Title) {
				continue
			}
			records = candidate
			found++
		}
		if found != 1 {
			return nil, fmt.Errorf("%w: expected one array in object, found %d", ErrMalformedOutput, found)
		}
	default:
		return nil, fmt.Errorf("%w: not a JSON array", ErrMalformedOutput)
	}

	if len(records) < minCount {
		return nil, fmt.Errorf("%w: got %d concepts, want at least %d", ErrMalformedOutput, len(records), minCount)
	}
	if maxCount > 0 && len(records) > maxCount {
		records = records[:maxCount]
	}

	concepts := make([]model.Concept, 0, len(records))
	for i, rec := range records {
		c := model.Concept{
			Title:       stringField(rec, keys.Title),
			Reference:   stringField(rec, keys.Reference),
			Description: stringField(rec, keys.Description),
		}
		if !c.Complete() {
			return nil, fmt.Errorf("%w: concept %d misses %q, %q or %q", ErrMalformedOutput, i, keys.Title, keys.Reference, keys.Description)
		}
		concepts = append(concepts, c)
	}

	return concepts, nil
}

// hasKey reports whether recs is non-empty and its first record carries key.
func hasKey(recs []map[string]any, key string) bool {
	if len(recs) == 0 {
		return false
	}
	_, ok := recs[0][key]
	return ok
}

func stringField(rec map[string]any, key string) string {
	s, _ := rec[key].(string)
	return strings.TrimSpace(s)
}

// stripFence removes a markdown code fence that models like to add around
// JSON, even when asked not to.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
