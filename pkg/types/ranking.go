// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the digest-ranker pipeline:
// paper records produced by the digest extractor, ranking outcomes and usage
// produced by the ranking orchestrator, and stage configuration.
package types

// UsageStats is the token consumption reported by the ranking service for a
// single call, plus the cost derived from the configured rate tier.
type UsageStats struct {
	InputTokens      int64   `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens" yaml:"output_tokens"`
	TotalTokens      int64   `json:"total_tokens" yaml:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd" yaml:"estimated_cost_usd"`
}

// IsZero reports whether no tokens were recorded.
func (u UsageStats) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0 && u.EstimatedCostUSD == 0
}

// RankingOutcome is the result of one ranking call. Papers is ordered most
// relevant first and never longer than the requested top-N or the candidate
// set.
type RankingOutcome struct {
	Papers []PaperRecord `json:"papers" yaml:"papers"`
	Usage  UsageStats    `json:"usage" yaml:"usage"`

	// Fallback is set when the service could not be used and Papers is the
	// head of the candidate list in input order.
	Fallback bool `json:"fallback" yaml:"fallback"`

	// FallbackReason describes why the fallback path was taken.
	FallbackReason string `json:"fallback_reason,omitempty" yaml:"fallback_reason,omitempty"`
}

// AccumulatedUsage is the running token total across all ranking calls made
// by one orchestrator.
type AccumulatedUsage struct {
	Calls        int   `json:"calls" yaml:"calls"`
	InputTokens  int64 `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int64 `json:"output_tokens" yaml:"output_tokens"`
}

// TotalTokens returns input plus output tokens.
func (a AccumulatedUsage) TotalTokens() int64 {
	return a.InputTokens + a.OutputTokens
}
