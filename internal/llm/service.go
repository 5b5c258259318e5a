// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm adapts external text-ranking services to a single synchronous
// call: a Request goes in, a Response with the ranking text and token usage
// comes out, or an error. Rate limiting is reported as ErrRateLimited so the
// caller can back off; a reply without usable text is ErrMalformedResponse.
// Adapters never retry on their own.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

var (
	// ErrRateLimited marks a call rejected by the provider's rate limiter.
	ErrRateLimited = eris.New("llm: rate limited")

	// ErrMalformedResponse marks a reply that arrived but carries no ranking text.
	ErrMalformedResponse = eris.New("llm: malformed response")
)

// Request is one ranking call.
type Request struct {
	Model       string
	System      string
	User        string
	TopN        int
	Temperature float64
	MaxTokens   int64
}

// Usage is the token block of a provider reply. Absent counters are zero.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Response is the provider reply reduced to what the ranker needs.
type Response struct {
	Text  string
	Usage Usage
}

// Service is the ranking service boundary. Implementations are strategies
// selected by configuration; tests supply their own.
type Service interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// New returns the Service selected by cfg.Provider. A positive cfg.Timeout
// bounds each call.
func New(cfg types.RankingConfig) (Service, error) {
	svc, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		svc = WithTimeout(svc, cfg.Timeout)
	}
	return svc, nil
}

func newProvider(cfg types.RankingConfig) (Service, error) {
	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, eris.New("llm: openai provider needs an API key")
		}
		return NewOpenAIService(cfg.APIKey, cfg.BaseURL), nil
	case types.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, eris.New("llm: anthropic provider needs an API key")
		}
		return NewAnthropicService(cfg.APIKey, cfg.BaseURL), nil
	case types.ProviderReplay:
		if cfg.ReplayFile == "" {
			return nil, eris.New("llm: replay provider needs ranking.replay_file")
		}
		return &ReplayService{Path: cfg.ReplayFile}, nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

type timeoutService struct {
	svc     Service
	timeout time.Duration
}

// WithTimeout returns a Service that gives each Complete call at most d.
func WithTimeout(svc Service, d time.Duration) Service {
	return &timeoutService{svc: svc, timeout: d}
}

func (s *timeoutService) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.svc.Complete(ctx, req)
}

// classify maps an SDK error to the package sentinels. HTTP 429 becomes
// ErrRateLimited; everything else is wrapped and returned as terminal.
func classify(err error, provider string, status int) error {
	if status == http.StatusTooManyRequests {
		return eris.Wrapf(ErrRateLimited, "%s: %v", provider, err)
	}
	return eris.Wrapf(err, "%s: request failed", provider)
}

// IsRateLimited reports whether err is, or wraps, ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
