// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-ranker/internal/config"
	"github.com/pdiddy/digest-ranker/internal/digest"
	"github.com/pdiddy/digest-ranker/internal/history"
	"github.com/pdiddy/digest-ranker/internal/llm"
	"github.com/pdiddy/digest-ranker/internal/metrics"
	"github.com/pdiddy/digest-ranker/internal/rank"
	"github.com/pdiddy/digest-ranker/internal/report"
	"github.com/pdiddy/digest-ranker/internal/secrets"
	"github.com/pdiddy/digest-ranker/internal/usage"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank <digest>",
	Short: "Rank the papers of a digest against a reader profile",
	Long: `Rank extracts the papers from a digest and asks the configured ranking
service for the top-N most relevant to the reader profile. The result is
written as a report to the output directory and printed as a table, followed
by the token usage and estimated cost of the run.

If the ranking service is rate limited past the retry budget or returns an
unusable answer, the first N papers are returned in digest order instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runRank,
}

func runRank(cmd *cobra.Command, args []string) error {
	if err := applyRankFlags(cmd); err != nil {
		return err
	}

	profile, err := readProfile(cmd)
	if err != nil {
		return err
	}

	raw, err := digest.LoadFile(args[0])
	if err != nil {
		return err
	}
	records, summary := digest.Parse(raw)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		return err
	}
	m.ObserveParse(summary.Parsed, summary.Dropped)
	zap.L().Info("digest parsed",
		zap.String("file", args[0]),
		zap.Int("parsed", summary.Parsed),
		zap.Int("dropped", summary.Dropped),
	)

	svc, err := llm.New(cfg.Ranking)
	if err != nil {
		return err
	}

	rcfg := rank.ConfigFrom(cfg.Ranking)
	rcfg.Observer = m
	acct := usage.NewAccountant(usage.RatesFromConfig(cfg.Pricing))
	ranker := rank.New(svc, acct, rcfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	outcome := ranker.Rank(ctx, records, profile, cfg.Ranking.TopN)

	path, err := report.Write(cfg.Output.Dir, cfg.Output.Format, report.New(outcome, started), started)
	if err != nil {
		return err
	}

	report.FormatTable(outcome, os.Stdout)
	fmt.Fprintf(os.Stdout, "Report written to %s\n\n", path)
	report.FormatUsageSummary(acct.Totals(), acct.TotalEstimatedCost(ranker.Tier()), os.Stdout)

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if !noHistory && cfg.History.Path != "" {
		if err := recordRun(ctx, args[0], started, ranker.Tier(), len(records), outcome); err != nil {
			return err
		}
	}

	if metricsFile, _ := cmd.Flags().GetString("metrics-file"); metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile, reg); err != nil {
			return err
		}
	}
	return nil
}

// applyRankFlags overrides configuration with any flags set on the command
// line and revalidates it.
func applyRankFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("top-n") {
		cfg.Ranking.TopN, _ = flags.GetInt("top-n")
	}
	if flags.Changed("model") {
		cfg.Ranking.Model, _ = flags.GetString("model")
	}
	if flags.Changed("provider") {
		p, _ := flags.GetString("provider")
		cfg.Ranking.Provider = types.Provider(p)
		cfg.Ranking.APIKey = ""
	}
	if flags.Changed("replay-file") {
		cfg.Ranking.ReplayFile, _ = flags.GetString("replay-file")
	}
	if flags.Changed("format") {
		f, _ := flags.GetString("format")
		cfg.Output.Format = types.OutputFormat(f)
	}
	if flags.Changed("out-dir") {
		cfg.Output.Dir, _ = flags.GetString("out-dir")
	}
	if cfg.Ranking.APIKey == "" {
		cfg.Ranking.APIKey = secrets.APIKeyFor(cfg.Ranking.Provider, loadedSecrets)
	}
	return config.Validate(cfg)
}

func readProfile(cmd *cobra.Command) (string, error) {
	profile, _ := cmd.Flags().GetString("profile")
	profileFile, _ := cmd.Flags().GetString("profile-file")

	switch {
	case profile != "" && profileFile != "":
		return "", eris.New("use either --profile or --profile-file, not both")
	case profileFile != "":
		data, err := os.ReadFile(profileFile)
		if err != nil {
			return "", eris.Wrapf(err, "reading profile %s", profileFile)
		}
		profile = string(data)
	}

	profile = strings.TrimSpace(profile)
	if profile == "" {
		return "", eris.New("a reader profile is required: pass --profile or --profile-file")
	}
	return profile, nil
}

func recordRun(ctx context.Context, digestPath string, started time.Time, tier usage.Tier, candidates int, outcome types.RankingOutcome) error {
	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	run := &history.Run{
		StartedAt:      started,
		Digest:         filepath.Base(digestPath),
		Model:          cfg.Ranking.Model,
		Tier:           string(tier),
		TopN:           cfg.Ranking.TopN,
		Candidates:     candidates,
		Usage:          outcome.Usage,
		Fallback:       outcome.Fallback,
		FallbackReason: outcome.FallbackReason,
		Papers:         outcome.Papers,
	}
	if err := store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return err
	}
	zap.L().Debug("run recorded", zap.String("run_id", run.ID))
	return nil
}

func init() {
	rankCmd.Flags().String("profile", "", "reader profile text")
	rankCmd.Flags().String("profile-file", "", "file containing the reader profile")
	rankCmd.Flags().Int("top-n", 5, "number of papers to return")
	rankCmd.Flags().String("model", "", "ranking model (overrides config)")
	rankCmd.Flags().String("provider", "", "ranking provider: openai, anthropic, or replay")
	rankCmd.Flags().String("replay-file", "", "recorded response served by the replay provider")
	rankCmd.Flags().String("format", "", "report format: json, markdown, or yaml")
	rankCmd.Flags().String("out-dir", "", "report directory (overrides config)")
	rankCmd.Flags().Bool("no-history", false, "do not record this run in the history database")
	rankCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile after the run")

	rootCmd.AddCommand(rankCmd)
}
