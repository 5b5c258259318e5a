// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/digest-ranker/internal/llm"
	"github.com/pdiddy/digest-ranker/internal/retry"
	"github.com/pdiddy/digest-ranker/internal/usage"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

// Observer receives ranking events, typically to update metrics.
type Observer interface {
	ObserveRetry()
	ObserveRanking(outcome types.RankingOutcome)
}

// Config configures a Ranker.
type Config struct {
	Options

	// Tier prices successful calls. Empty derives it from Options.Model.
	Tier usage.Tier

	MaxAttempts int
	BaseDelay   time.Duration

	// Logger defaults to zap.L().
	Logger *zap.Logger

	// Observer is optional.
	Observer Observer
}

// ConfigFrom builds a Ranker configuration from the ranking settings.
func ConfigFrom(cfg types.RankingConfig) Config {
	return Config{
		Options: Options{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
		Tier:        usage.ResolveTier(cfg),
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
	}
}

// Ranker runs one ranking call end to end: Build, Controller.Call,
// Interpret, and accounting. It never returns an error; failures produce a
// fallback outcome. A Ranker and its Accountant serve one pipeline run.
type Ranker struct {
	svc        llm.Service
	controller *retry.Controller
	accountant *usage.Accountant
	opts       Options
	tier       usage.Tier
	log        *zap.Logger
	observer   Observer
}

// New creates a Ranker that records usage into acct. A nil acct gets a fresh
// Accountant with the default rates.
func New(svc llm.Service, acct *usage.Accountant, cfg Config) *Ranker {
	if acct == nil {
		acct = usage.NewAccountant(nil)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.L()
	}
	tier := cfg.Tier
	if tier == "" {
		tier = usage.TierForModel(cfg.Model)
	}

	r := &Ranker{
		svc:        svc,
		controller: retry.New(cfg.MaxAttempts, cfg.BaseDelay),
		accountant: acct,
		opts:       cfg.Options,
		tier:       tier,
		log:        log.With(zap.String("model", cfg.Model), zap.String("tier", string(tier))),
		observer:   cfg.Observer,
	}
	r.controller.OnRetry = r.onRetry
	return r
}

// Accountant returns the Accountant this Ranker records into.
func (r *Ranker) Accountant() *usage.Accountant { return r.accountant }

// Tier returns the pricing tier used for cost estimates.
func (r *Ranker) Tier() usage.Tier { return r.tier }

// Rank orders records by relevance to profile and returns at most topN of
// them. Empty records yield an empty outcome without contacting the service.
func (r *Ranker) Rank(ctx context.Context, records []types.PaperRecord, profile string, topN int) types.RankingOutcome {
	req, ok := Build(records, profile, topN, r.opts)
	if !ok {
		r.log.Debug("no candidates, skipping ranking call")
		return types.RankingOutcome{Papers: []types.PaperRecord{}}
	}

	resp, err := r.controller.Call(ctx, r.svc, req)
	if err != nil {
		return r.fallback(records, req.TopN, "ranking call failed", err)
	}

	outcome, err := Interpret(resp, records, req.TopN)
	if err != nil {
		return r.fallback(records, req.TopN, "ranking response unparseable", err)
	}

	outcome.Usage.EstimatedCostUSD = r.accountant.EstimateCost(outcome.Usage.InputTokens, outcome.Usage.OutputTokens, r.tier)
	r.accountant.RecordCall(outcome.Usage)

	r.log.Info("ranking cost",
		zap.Int("candidates", len(records)),
		zap.Int("ranked", len(outcome.Papers)),
		zap.Int64("input_tokens", outcome.Usage.InputTokens),
		zap.Int64("output_tokens", outcome.Usage.OutputTokens),
		zap.Int64("total_tokens", outcome.Usage.TotalTokens),
		zap.Float64("estimated_cost_usd", outcome.Usage.EstimatedCostUSD),
	)
	if r.observer != nil {
		r.observer.ObserveRanking(outcome)
	}
	return outcome
}

func (r *Ranker) fallback(records []types.PaperRecord, topN int, msg string, err error) types.RankingOutcome {
	outcome := Fallback(records, topN, err.Error())
	r.log.Warn(msg+", using input order",
		zap.Error(err),
		zap.Int("candidates", len(records)),
		zap.Int("returned", len(outcome.Papers)),
	)
	if r.observer != nil {
		r.observer.ObserveRanking(outcome)
	}
	return outcome
}

func (r *Ranker) onRetry(attempt int, wait time.Duration, err error) {
	r.log.Warn("rate limited, backing off",
		zap.Int("attempt", attempt),
		zap.Duration("wait", wait),
		zap.Error(err),
	)
	if r.observer != nil {
		r.observer.ObserveRetry()
	}
}
