package process

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	OpenAIModel = "gpt-4o-mini"

	systemPrompt     = `You are a helpful assistant for students. You extract educational content from the material a user gives you.`
	jsonSystemPrompt = `Answer with a JSON object that has a single key "concepts" holding the JSON array the user asks for.`
)

type OpenAIInfo struct {
	BaseURL string
	ApiKey  string
	Model   string
}

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(info OpenAIInfo) *OpenAI {
	config := openai.DefaultConfig(info.ApiKey)
	if info.BaseURL != "" {
		config.BaseURL = info.BaseURL
	}
	if info.Model == "" {
		info.Model = OpenAIModel
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  info.Model,
	}
}

func (o *OpenAI) Name() string {
	return "openai " + o.model
}

func (o *OpenAI) Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
		},
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: jsonSystemPrompt,
		})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", upstreamError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

func upstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}

	return fmt.Errorf("openai request failed: %w", err)
}
