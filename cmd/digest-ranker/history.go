// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pdiddy/digest-ranker/internal/history"
	"github.com/pdiddy/digest-ranker/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past ranking runs and their cumulative cost",
	Long: `History reads the run database written by rank. Without arguments it
lists the most recent runs and the totals across all runs. With a run id it
prints the papers that run recommended.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.History.Path == "" {
		return eris.New("history is disabled: set history.path")
	}
	if _, err := os.Stat(cfg.History.Path); os.IsNotExist(err) {
		fmt.Println("No runs recorded.")
		return nil
	}

	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(os.Stdout, run)
		}
		fmt.Printf("Run %s  %s  %s  (%s)\n\n", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04"), run.Digest, run.Model)
		formatRecords(run.Papers, os.Stdout)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	totals, err := store.Totals(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, struct {
			Runs   []history.Run  `json:"runs"`
			Totals history.Totals `json:"totals"`
		}{runs, totals})
	}

	formatRuns(runs, os.Stdout)
	fmt.Fprintf(os.Stdout, "\n%d runs, %d fallbacks, %d input + %d output tokens, $%.6f estimated\n",
		totals.Runs, totals.Fallbacks, totals.InputTokens, totals.OutputTokens, totals.EstimatedCostUSD)
	return nil
}

func formatRuns(runs []history.Run, w io.Writer) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-16s  %-24s  %-16s  %5s  %10s  %s\n",
		"Run", "Started", "Digest", "Model", "Top", "Cost USD", "")
	fmt.Fprintln(w, strings.Repeat("-", 125))
	for _, r := range runs {
		note := ""
		if r.Fallback {
			note = "fallback"
		}
		fmt.Fprintf(w, "%-36s  %-16s  %-24s  %-16s  %5d  %10.6f  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), report.Truncate(r.Digest, 21),
			report.Truncate(r.Model, 13), len(r.Papers), r.Usage.EstimatedCostUSD, note)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}
