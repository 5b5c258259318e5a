// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package usage accumulates token counts across ranking calls and derives an
// estimated cost from a per-tier rate table. An Accountant belongs to one
// orchestrator; there is no package-level total.
package usage

import (
	"strings"
	"sync"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

// Tier is a pricing class of ranking models.
type Tier string

const (
	// TierMini covers the gpt-4o-mini class of economy models.
	TierMini Tier = "mini"
	// TierStandard covers the gpt-4o class of full models.
	TierStandard Tier = "standard"
)

// Rates maps a tier to its USD price per million tokens.
type Rates map[Tier]types.TierRate

// DefaultRates returns a fresh copy of the built-in rate table.
func DefaultRates() Rates {
	return Rates{
		TierMini:     {Input: 0.15, Output: 0.60},
		TierStandard: {Input: 2.50, Output: 10.00},
	}
}

// RatesFromConfig overlays configured tiers on the built-in table.
func RatesFromConfig(cfg types.PricingConfig) Rates {
	rates := DefaultRates()
	for name, r := range cfg.Tiers {
		rates[Tier(strings.ToLower(name))] = r
	}
	return rates
}

// Cost prices a token count at tier. Unknown tiers cost 0.
func (r Rates) Cost(inputTokens, outputTokens int64, tier Tier) float64 {
	rate, ok := r[tier]
	if !ok {
		return 0
	}
	inCost := (float64(inputTokens) / 1e6) * rate.Input
	outCost := (float64(outputTokens) / 1e6) * rate.Output
	return inCost + outCost
}

// EstimateCost prices a token count with the built-in rate table.
func EstimateCost(inputTokens, outputTokens int64, tier Tier) float64 {
	return DefaultRates().Cost(inputTokens, outputTokens, tier)
}

// TierForModel maps a model identifier to its pricing tier. Economy models
// ("mini", "haiku", "nano") are TierMini; everything else is TierStandard.
func TierForModel(model string) Tier {
	m := strings.ToLower(model)
	for _, marker := range []string{"mini", "haiku", "nano"} {
		if strings.Contains(m, marker) {
			return TierMini
		}
	}
	return TierStandard
}

// ResolveTier returns the configured tier, or the model's tier when none is set.
func ResolveTier(cfg types.RankingConfig) Tier {
	if cfg.Tier != "" {
		return Tier(strings.ToLower(cfg.Tier))
	}
	return TierForModel(cfg.Model)
}

// Accountant keeps running token totals. It is safe for concurrent use.
type Accountant struct {
	mu     sync.Mutex
	totals types.AccumulatedUsage
	rates  Rates
}

// NewAccountant returns a zeroed Accountant. Nil rates use DefaultRates.
func NewAccountant(rates Rates) *Accountant {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Accountant{rates: rates}
}

// RecordCall adds one call's usage to the totals. Negative counters are
// treated as zero so totals never decrease.
func (a *Accountant) RecordCall(u types.UsageStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totals.Calls++
	a.totals.InputTokens += max(u.InputTokens, 0)
	a.totals.OutputTokens += max(u.OutputTokens, 0)
}

// Totals returns a snapshot of the accumulated usage.
func (a *Accountant) Totals() types.AccumulatedUsage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals
}

// EstimateCost prices a token count with this Accountant's rates.
func (a *Accountant) EstimateCost(inputTokens, outputTokens int64, tier Tier) float64 {
	return a.rates.Cost(inputTokens, outputTokens, tier)
}

// TotalEstimatedCost prices the accumulated totals at tier.
func (a *Accountant) TotalEstimatedCost(tier Tier) float64 {
	t := a.Totals()
	return a.rates.Cost(t.InputTokens, t.OutputTokens, tier)
}
