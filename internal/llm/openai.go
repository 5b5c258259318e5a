// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
)

// OpenAIService ranks through the Chat Completions API.
type OpenAIService struct {
	client *openai.Client
}

// NewOpenAIService creates a client with SDK retries disabled; backoff is
// owned by the caller. baseURL is optional.
func NewOpenAIService(apiKey, baseURL string) *OpenAIService {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIService{client: &client}
}

// Complete sends the system instruction as a developer message followed by
// the user instruction.
func (s *OpenAIService) Complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.DeveloperMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, classify(err, "openai", apiErr.StatusCode)
		}
		return nil, classify(err, "openai", 0)
	}

	if len(resp.Choices) == 0 {
		return nil, eris.Wrap(ErrMalformedResponse, "openai: no choices in response")
	}

	return &Response{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}
