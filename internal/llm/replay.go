// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// rateLimitCode is the error code the Chat Completions API uses for 429s.
const rateLimitCode = "rate_limit_exceeded"

// ReplayService serves a recorded Chat Completions response envelope instead
// of calling a provider. It is used for offline runs and demos.
//
// An envelope whose error.code is "rate_limit_exceeded" replays as
// ErrRateLimited; any other error object is terminal.
type ReplayService struct {
	// Path is the envelope file, read on every call.
	Path string

	// Data, when set, is used instead of Path.
	Data []byte
}

type replayEnvelope struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete ignores the request and decodes the recorded envelope.
func (s *ReplayService) Complete(ctx context.Context, _ Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "replay: context done")
	}

	data := s.Data
	if data == nil {
		b, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "replay: read %s", s.Path)
		}
		data = b
	}

	var env replayEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "replay: decode envelope: %v", err)
	}

	if env.Error != nil {
		if env.Error.Code == rateLimitCode {
			return nil, eris.Wrapf(ErrRateLimited, "replay: %s", env.Error.Message)
		}
		return nil, eris.Errorf("replay: recorded error %s: %s", env.Error.Code, env.Error.Message)
	}

	if len(env.Choices) == 0 || env.Choices[0].Message.Content == nil {
		return nil, eris.Wrap(ErrMalformedResponse, "replay: no message content")
	}

	return &Response{
		Text: *env.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  env.Usage.PromptTokens,
			OutputTokens: env.Usage.CompletionTokens,
			TotalTokens:  env.Usage.TotalTokens,
		},
	}, nil
}
