// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// defaultAnthropicMaxTokens is used when the request sets no cap; the
// Messages API requires one.
const defaultAnthropicMaxTokens = 256

// AnthropicService ranks through the Messages API.
type AnthropicService struct {
	client sdk.Client
}

// NewAnthropicService creates a client with SDK retries disabled. baseURL is
// optional.
func NewAnthropicService(apiKey, baseURL string) *AnthropicService {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicService{client: sdk.NewClient(opts...)}
}

// Complete sends the system instruction as the system prompt and returns the
// first text block of the reply.
func (s *AnthropicService) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.User)),
		},
		Temperature: sdk.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := s.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, classify(err, "anthropic", apiErr.StatusCode)
		}
		return nil, classify(err, "anthropic", 0)
	}

	usage := Usage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
		TotalTokens:  msg.Usage.InputTokens + msg.Usage.OutputTokens,
	}

	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		return &Response{Text: block.Text, Usage: usage}, nil
	}

	return nil, eris.Wrap(ErrMalformedResponse, "anthropic: no text content in response")
}
