// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/digest-ranker/internal/digest"
	"github.com/pdiddy/digest-ranker/internal/llm"
	"github.com/pdiddy/digest-ranker/internal/usage"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

// mockService replays errs in order, then resp, and records every request.
type mockService struct {
	errs     []error
	resp     *llm.Response
	requests []llm.Request
}

func (m *mockService) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.requests = append(m.requests, req)
	if n := len(m.requests); n <= len(m.errs) {
		return nil, m.errs[n-1]
	}
	return m.resp, nil
}

type countingObserver struct {
	retries  int
	outcomes []types.RankingOutcome
}

func (o *countingObserver) ObserveRetry() { o.retries++ }

func (o *countingObserver) ObserveRanking(outcome types.RankingOutcome) {
	o.outcomes = append(o.outcomes, outcome)
}

func testConfig(logger *zap.Logger, obs Observer) Config {
	return Config{
		Options:     Options{Model: "gpt-4o-mini", MaxTokens: 50},
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Logger:      logger,
		Observer:    obs,
	}
}

const threeSegmentDigest = `Preamble of the mailing.
------------------------------------------------------------------------------\\
arXiv:2401.00001
Title: Convex Relaxations for Scheduling
Authors: A. First
Categories: math.OC
\\
  We relax scheduling problems.
\\ ( https://arxiv.org/abs/2401.00001 ,  10kb)
------------------------------------------------------------------------------
\\
arXiv:2401.00002
Authors: No Title Here
Categories: cs.AI
\\
  This entry has no title line.
\\ ( https://arxiv.org/abs/2401.00002 ,  10kb)
------------------------------------------------------------------------------
\\
arXiv:2401.00003
Title: Stochastic Gradient Methods Revisited
Authors: B. Second
Categories: cs.LG math.OC
\\
  We revisit SGD.
\\ ( https://arxiv.org/abs/2401.00003 ,  10kb)
`

func TestRank_EndToEnd(t *testing.T) {
	records := digest.Extract(threeSegmentDigest)
	require.Len(t, records, 2)

	svc := &mockService{resp: &llm.Response{
		Text:  "2,1",
		Usage: llm.Usage{InputTokens: 420, OutputTokens: 3, TotalTokens: 423},
	}}
	core, logs := observer.New(zapcore.InfoLevel)
	obs := &countingObserver{}
	acct := usage.NewAccountant(nil)

	r := New(svc, acct, testConfig(zap.New(core), obs))
	got := r.Rank(context.Background(), records, "I work on optimization.", 2)

	assert.Equal(t, []types.PaperRecord{records[1], records[0]}, got.Papers)
	assert.Equal(t, "Stochastic Gradient Methods Revisited", got.Papers[0].Title)
	assert.Equal(t, int64(420), got.Usage.InputTokens)
	assert.Equal(t, int64(3), got.Usage.OutputTokens)
	assert.Equal(t, int64(423), got.Usage.TotalTokens)
	assert.InDelta(t, usage.EstimateCost(420, 3, usage.TierMini), got.Usage.EstimatedCostUSD, 1e-12)
	assert.False(t, got.Fallback)

	require.Len(t, svc.requests, 1)
	assert.Equal(t, 2, svc.requests[0].TopN)
	assert.Contains(t, svc.requests[0].User, "I work on optimization.")

	assert.Equal(t, types.AccumulatedUsage{Calls: 1, InputTokens: 420, OutputTokens: 3}, acct.Totals())
	assert.Same(t, acct, r.Accountant())
	assert.Equal(t, usage.TierMini, r.Tier())

	require.Len(t, obs.outcomes, 1)
	assert.Equal(t, 1, logs.FilterMessage("ranking cost").Len())
}

func TestRank_EmptyCandidates(t *testing.T) {
	svc := &mockService{resp: &llm.Response{Text: "1"}}
	acct := usage.NewAccountant(nil)

	got := New(svc, acct, testConfig(zap.NewNop(), nil)).Rank(context.Background(), nil, "profile", 5)

	assert.Empty(t, got.Papers)
	assert.NotNil(t, got.Papers)
	assert.True(t, got.Usage.IsZero())
	assert.False(t, got.Fallback)
	assert.Empty(t, svc.requests)
	assert.Equal(t, types.AccumulatedUsage{}, acct.Totals())
}

func TestRank_Fallbacks(t *testing.T) {
	rateLimited := eris.Wrap(llm.ErrRateLimited, "test: 429")

	tests := []struct {
		name        string
		errs        []error
		resp        *llm.Response
		wantCalls   int
		wantRetries int
	}{
		{
			name:        "retries exhausted",
			errs:        []error{rateLimited, rateLimited, rateLimited},
			wantCalls:   3,
			wantRetries: 3,
		},
		{
			name:      "malformed response",
			errs:      []error{eris.Wrap(llm.ErrMalformedResponse, "test: no choices")},
			wantCalls: 1,
		},
		{
			name:      "transport failure",
			errs:      []error{errors.New("dial tcp: connection refused")},
			wantCalls: 1,
		},
		{
			name:      "unparseable ranking text",
			resp:      &llm.Response{Text: "Paper two is best", Usage: llm.Usage{InputTokens: 99, OutputTokens: 5}},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := testRecords(5)
			svc := &mockService{errs: tt.errs, resp: tt.resp}
			core, logs := observer.New(zapcore.WarnLevel)
			obs := &countingObserver{}
			acct := usage.NewAccountant(nil)

			got := New(svc, acct, testConfig(zap.New(core), obs)).Rank(context.Background(), records, "profile", 3)

			assert.Equal(t, records[:3], got.Papers)
			assert.True(t, got.Usage.IsZero())
			assert.True(t, got.Fallback)
			assert.NotEmpty(t, got.FallbackReason)

			assert.Len(t, svc.requests, tt.wantCalls)
			assert.Equal(t, tt.wantRetries, obs.retries)
			assert.Equal(t, types.AccumulatedUsage{}, acct.Totals())

			var sawFallback bool
			for _, e := range logs.All() {
				if strings.Contains(e.Message, "using input order") {
					sawFallback = true
				}
			}
			assert.True(t, sawFallback)
		})
	}
}

func TestRank_RecoversAfterRateLimit(t *testing.T) {
	rateLimited := eris.Wrap(llm.ErrRateLimited, "test: 429")
	svc := &mockService{
		errs: []error{rateLimited},
		resp: &llm.Response{Text: "3", Usage: llm.Usage{InputTokens: 10, OutputTokens: 1, TotalTokens: 11}},
	}
	obs := &countingObserver{}

	got := New(svc, nil, testConfig(zap.NewNop(), obs)).Rank(context.Background(), testRecords(3), "p", 1)

	assert.Equal(t, []string{"Paper 3"}, titles(got.Papers))
	assert.False(t, got.Fallback)
	assert.Equal(t, 1, obs.retries)
	assert.Len(t, svc.requests, 2)
}

func TestRank_AccumulatesAcrossCalls(t *testing.T) {
	svc := &mockService{resp: &llm.Response{Text: "1", Usage: llm.Usage{InputTokens: 100, OutputTokens: 2, TotalTokens: 102}}}
	cfg := testConfig(zap.NewNop(), nil)
	cfg.Tier = usage.TierStandard
	r := New(svc, nil, cfg)

	for i := 0; i < 3; i++ {
		r.Rank(context.Background(), testRecords(2), "p", 1)
	}

	assert.Equal(t, types.AccumulatedUsage{Calls: 3, InputTokens: 300, OutputTokens: 6}, r.Accountant().Totals())
	assert.InDelta(t, usage.EstimateCost(300, 6, usage.TierStandard), r.Accountant().TotalEstimatedCost(r.Tier()), 1e-12)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(types.RankingConfig{
		Model:       "gpt-4o",
		Temperature: 0.2,
		MaxTokens:   50,
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
	})
	assert.Equal(t, Options{Model: "gpt-4o", Temperature: 0.2, MaxTokens: 50}, cfg.Options)
	assert.Equal(t, usage.TierStandard, cfg.Tier)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.BaseDelay)
}
