package process

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const GeminiModel = "gemini-1.5-flash-latest"

type GeminiInfo struct {
	// BaseURL overrides the Gemini endpoint, empty means the public API.
	BaseURL string
	ApiKey  string
	Model   string
}

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, info GeminiInfo) (*Gemini, error) {
	if info.Model == "" {
		info.Model = GeminiModel
	}
	opts := []option.ClientOption{option.WithAPIKey(info.ApiKey)}
	if info.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimSuffix(info.BaseURL, "/")))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  info.Model,
	}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Name() string {
	return "gemini " + g.model
}

func (g *Gemini) Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if jsonOutput {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{StatusCode: apiErr.Code, Body: apiErr.Body}
		}
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%w: %v", ErrEmptyResponse, blocked)
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	return geminiText(resp)
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: first candidate has no parts (finish reason %s)", ErrEmptyResponse, cand.FinishReason)
	}

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if txt, ok := p.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	return sb.String(), nil
}
