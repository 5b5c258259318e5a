// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a ranking outcome as a JSON, Markdown, or YAML
// document, a terminal table, or a usage summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

const (
	dateLayout     = "2006-01-02"
	fileDateLayout = "20060102"
	filePrefix     = "recommended_papers_"
)

// Recommendation is one ranked paper as written to reports.
type Recommendation struct {
	Title      string `json:"title" yaml:"title"`
	Authors    string `json:"authors" yaml:"authors"`
	Link       string `json:"link" yaml:"link"`
	Categories string `json:"categories" yaml:"categories"`
	Abstract   string `json:"abstract" yaml:"abstract"`
}

// Report is the persisted form of one ranking run.
type Report struct {
	Date            string           `json:"date" yaml:"date"`
	TokenUsage      types.UsageStats `json:"token_usage" yaml:"token_usage"`
	Recommendations []Recommendation `json:"recommendations" yaml:"recommendations"`
	Fallback        bool             `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// New builds a Report for outcome dated at date.
func New(outcome types.RankingOutcome, date time.Time) Report {
	recs := make([]Recommendation, len(outcome.Papers))
	for i, p := range outcome.Papers {
		recs[i] = FromRecord(p)
	}
	return Report{
		Date:            date.Format(dateLayout),
		TokenUsage:      outcome.Usage,
		Recommendations: recs,
		Fallback:        outcome.Fallback,
	}
}

// FromRecord converts a paper record to a Recommendation.
func FromRecord(p types.PaperRecord) Recommendation {
	return Recommendation{
		Title:      p.Title,
		Authors:    p.Authors,
		Link:       p.Link,
		Categories: p.Categories,
		Abstract:   p.Abstract,
	}
}

// FormatJSON writes r as indented JSON to w.
func FormatJSON(r Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}

// FormatYAML writes r as YAML to w.
func FormatYAML(r Report, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "report: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "report: encode yaml")
	}
	return nil
}

// FormatMarkdown writes r as a reading list: a title line, then one section
// per paper with its link, authors, and abstract.
func FormatMarkdown(r Report, w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Top %d Papers of %s for You\n\n", len(r.Recommendations), r.Date)
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "## %s\n", rec.Title)
		fmt.Fprintf(&b, "### Link\n%s\n", rec.Link)
		fmt.Fprintf(&b, "### Authors\n%s\n", rec.Authors)
		fmt.Fprintf(&b, "### Abstract\n%s\n\n", rec.Abstract)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write markdown")
	}
	return nil
}

// Format writes r to w in the given format.
func Format(r Report, format types.OutputFormat, w io.Writer) error {
	switch format {
	case types.OutputJSON, "":
		return FormatJSON(r, w)
	case types.OutputMarkdown:
		return FormatMarkdown(r, w)
	case types.OutputYAML:
		return FormatYAML(r, w)
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

// FileName returns the report file name for date and format, e.g.
// recommended_papers_20240116.json.
func FileName(date time.Time, format types.OutputFormat) string {
	return TaggedFileName(date, format, "")
}

// TaggedFileName is FileName with tag appended to the date, e.g.
// recommended_papers_20240116_<tag>.json. An empty tag gives FileName.
func TaggedFileName(date time.Time, format types.OutputFormat, tag string) string {
	ext := "json"
	switch format {
	case types.OutputMarkdown:
		ext = "md"
	case types.OutputYAML:
		ext = "yaml"
	}
	name := filePrefix + date.Format(fileDateLayout)
	if tag != "" {
		name += "_" + tag
	}
	return name + "." + ext
}

// Write renders r into dir and returns the file path. dir is created if
// missing.
func Write(dir string, format types.OutputFormat, r Report, date time.Time) (string, error) {
	return WriteTagged(dir, format, r, date, "")
}

// WriteTagged is Write under TaggedFileName, so concurrent writers on the
// same day do not share a file.
func WriteTagged(dir string, format types.OutputFormat, r Report, date time.Time, tag string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create %s", dir)
	}

	path := filepath.Join(dir, TaggedFileName(date, format, tag))
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "report: create %s", path)
	}

	if err := Format(r, format, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrapf(err, "report: close %s", path)
	}
	return path, nil
}

// FormatTable writes the ranked papers as a terminal table.
func FormatTable(outcome types.RankingOutcome, w io.Writer) {
	if len(outcome.Papers) == 0 {
		fmt.Fprintln(w, "No papers ranked.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-24s  %s\n", "Rank", "Title", "Authors", "Link")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for i, p := range outcome.Papers {
		fmt.Fprintf(w, "%-4d  %-60s  %-24s  %s\n", i+1, Truncate(p.Title, 57), Truncate(p.Authors, 21), p.Link)
	}

	fmt.Fprintf(w, "\n%d papers", len(outcome.Papers))
	if outcome.Fallback {
		fmt.Fprint(w, " (input order; ranking unavailable)")
	}
	fmt.Fprintln(w)
}

// FormatUsageSummary writes the run's accumulated usage and its estimated
// cost.
func FormatUsageSummary(totals types.AccumulatedUsage, costUSD float64, w io.Writer) {
	fmt.Fprintln(w, "=== Token Usage Summary ===")
	fmt.Fprintf(w, "Ranking calls:        %d\n", totals.Calls)
	fmt.Fprintf(w, "Total input tokens:   %d\n", totals.InputTokens)
	fmt.Fprintf(w, "Total output tokens:  %d\n", totals.OutputTokens)
	fmt.Fprintf(w, "Total tokens:         %d\n", totals.TotalTokens())
	fmt.Fprintf(w, "Total estimated cost: $%.6f\n", costUSD)
}

// Truncate shortens s to max runes followed by "...". Shorter strings are
// returned unchanged.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}
