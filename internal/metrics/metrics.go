// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus collectors for the parse and ranking
// pipeline. Collectors are created unregistered; call Register with the
// registry the process serves or exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

// Metric names.
const (
	MetricSegmentsTotal      = "digest_segments_total"
	MetricRankingCallsTotal  = "ranking_calls_total"
	MetricRankingRetries     = "ranking_rate_limit_retries_total"
	MetricRankingTokensTotal = "ranking_tokens_total"
	MetricRankingCostUSD     = "ranking_estimated_cost_usd_total"
	MetricUploadsTotal       = "upload_requests_total"
)

// Label values.
const (
	SegmentParsed  = "parsed"
	SegmentDropped = "dropped"

	OutcomeRanked   = "ranked"
	OutcomeFallback = "fallback"

	DirectionInput  = "input"
	DirectionOutput = "output"
)

// Metrics holds the pipeline collectors. All methods are safe for
// concurrent use.
type Metrics struct {
	segments     *prometheus.CounterVec
	rankingCalls *prometheus.CounterVec
	retries      prometheus.Counter
	tokens       *prometheus.CounterVec
	costUSD      prometheus.Counter
	uploads      *prometheus.CounterVec
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		segments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSegmentsTotal,
				Help: "Digest segments seen by the extractor, by result",
			},
			[]string{"result"},
		),
		rankingCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingCallsTotal,
				Help: "Ranking calls by outcome",
			},
			[]string{"outcome"},
		),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRankingRetries,
			Help: "Backoff waits caused by provider rate limiting",
		}),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingTokensTotal,
				Help: "Tokens reported by the ranking service, by direction",
			},
			[]string{"direction"},
		),
		costUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRankingCostUSD,
			Help: "Estimated ranking spend in USD",
		}),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricUploadsTotal,
				Help: "Digest uploads by HTTP status code",
			},
			[]string{"code"},
		),
	}
}

// Collectors returns every collector, for registration and tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.segments,
		m.rankingCalls,
		m.retries,
		m.tokens,
		m.costUSD,
		m.uploads,
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return eris.Wrap(err, "metrics: register collector")
		}
	}
	return nil
}

// ObserveParse counts the segments of one digest.
func (m *Metrics) ObserveParse(parsed, dropped int) {
	m.segments.WithLabelValues(SegmentParsed).Add(float64(parsed))
	m.segments.WithLabelValues(SegmentDropped).Add(float64(dropped))
}

// ObserveRetry counts one backoff wait.
func (m *Metrics) ObserveRetry() {
	m.retries.Inc()
}

// ObserveRanking counts one ranking call and its usage.
func (m *Metrics) ObserveRanking(outcome types.RankingOutcome) {
	if outcome.Fallback {
		m.rankingCalls.WithLabelValues(OutcomeFallback).Inc()
		return
	}
	m.rankingCalls.WithLabelValues(OutcomeRanked).Inc()
	m.tokens.WithLabelValues(DirectionInput).Add(float64(max(outcome.Usage.InputTokens, 0)))
	m.tokens.WithLabelValues(DirectionOutput).Add(float64(max(outcome.Usage.OutputTokens, 0)))
	m.costUSD.Add(max(outcome.Usage.EstimatedCostUSD, 0))
}

// ObserveUpload counts one upload response.
func (m *Metrics) ObserveUpload(code string) {
	m.uploads.WithLabelValues(code).Inc()
}

// WriteTextfile writes every metric in g to path in the text exposition
// format, for the node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return eris.Wrapf(err, "metrics: write %s", path)
	}
	return nil
}
