package process

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUpstream        = errors.New("upstream request failed")
	ErrEmptyResponse   = errors.New("the AI model returned an empty response")
	ErrMalformedOutput = errors.New("model output is not valid concept JSON")
)

// UpstreamError keeps the status and body of a failed call to the language
// model for diagnostics.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s with status %d: %s", ErrUpstream, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// Generator sends one prompt to a generative language model and returns the
// text of the first completion. With json set the model is asked to answer
// with JSON only.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, json bool) (string, error)
}
