package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerate(t *testing.T) {
	for _, tc := range []struct {
		name       string
		json       bool
		status     int
		body       string
		exp        string
		expFormat  bool
		expErr     error
		expCode    int
		expMsgSize int
	}{
		{
			name:       "json output",
			json:       true,
			status:     http.StatusOK,
			body:       `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"concepts\":[]}"},"finish_reason":"stop"}]}`,
			exp:        `{"concepts":[]}`,
			expFormat:  true,
			expMsgSize: 3,
		},
		{
			name:       "free text",
			status:     http.StatusOK,
			body:       `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"1. Inertia"},"finish_reason":"stop"}]}`,
			exp:        "1. Inertia",
			expMsgSize: 2,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			expErr:     ErrUpstream,
			expCode:    http.StatusTooManyRequests,
			expMsgSize: 2,
		},
		{
			name:       "no choices",
			status:     http.StatusOK,
			body:       `{"id":"1","object":"chat.completion","choices":[]}`,
			expErr:     ErrEmptyResponse,
			expMsgSize: 2,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var received openai.ChatCompletionRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			o := NewOpenAI(OpenAIInfo{BaseURL: srv.URL + "/v1", ApiKey: "secret"})
			act, err := o.Generate(context.Background(), "the prompt", tc.json)

			assert.Equal(t, OpenAIModel, received.Model)
			require.Len(t, received.Messages, tc.expMsgSize)
			assert.Equal(t, openai.ChatMessageRoleUser, received.Messages[len(received.Messages)-1].Role)
			assert.Equal(t, "the prompt", received.Messages[len(received.Messages)-1].Content)
			if tc.expFormat {
				require.NotNil(t, received.ResponseFormat)
				assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, received.ResponseFormat.Type)
			} else {
				assert.Nil(t, received.ResponseFormat)
			}

			if tc.expErr != nil {
				assert.ErrorIs(t, err, tc.expErr)
				if tc.expCode != 0 {
					var upErr *UpstreamError
					require.True(t, errors.As(err, &upErr))
					assert.Equal(t, tc.expCode, upErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, act)
		})
	}
}

func TestOpenAIConceptsThroughExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, _ := json.Marshal(`{"concepts": ` + threeConcepts + `}`)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, content)
	}))
	defer srv.Close()

	ce := NewConceptExtractor(NewOpenAI(OpenAIInfo{BaseURL: srv.URL, ApiKey: "secret"}), NewPromptBuilder(0))
	act, err := ce.Extract(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, act, 3)
}
