// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-ranker/internal/digest"
	"github.com/pdiddy/digest-ranker/internal/report"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse <digest>",
	Short: "List the papers extracted from a digest",
	Long: `Parse reads a digest file (plain text, or .eml which is unwrapped first),
extracts one record per well-formed entry, and prints them. Entries without
an arXiv identifier or a title are dropped and counted.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	raw, err := digest.LoadFile(args[0])
	if err != nil {
		return err
	}

	records, summary := digest.Parse(raw)
	zap.L().Info("digest parsed",
		zap.String("file", args[0]),
		zap.Int("segments", summary.Segments),
		zap.Int("parsed", summary.Parsed),
		zap.Int("dropped", summary.Dropped),
	)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	formatRecords(records, os.Stdout)
	fmt.Fprintf(os.Stdout, "\n%d papers (%d segments, %d dropped)\n", summary.Parsed, summary.Segments, summary.Dropped)
	return nil
}

func formatRecords(records []types.PaperRecord, w io.Writer) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-12s  %-60s  %-24s  %s\n", "#", "arXiv", "Title", "Authors", "Categories")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for i, r := range records {
		fmt.Fprintf(w, "%-4d  %-12s  %-60s  %-24s  %s\n",
			i+1, r.ExternalID, report.Truncate(r.Title, 57), report.Truncate(r.Authors, 21), r.Categories)
	}
}

func init() {
	parseCmd.Flags().Bool("json", false, "output records as JSON")

	rootCmd.AddCommand(parseCmd)
}
