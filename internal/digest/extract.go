// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package digest turns the plain-text body of an arXiv announcement digest
// into paper records.
//
// The digest has no closing delimiter per entry and abstracts are free text,
// so entries are found with a line-anchored state machine: every line that
// begins with "arXiv:" opens a new segment. Fields are then pulled out of each
// segment independently because optional metadata lines (Comments:,
// License:, ...) move them around.
//
// Abstract convention. Two layouts are accepted:
//
//	Categories: cs.LG              Categories: cs.LG
//	\\                                                    <- blank line
//	  Abstract text...               Abstract text...
//	\\ ( https://arxiv.org/abs/...   <next blank line or end of segment>
//
// The abstract starts after the first separator (a line that is exactly `\\`,
// or a blank line) that follows the Title: line and is not followed by another
// metadata label. It ends at the next `\\` line, a "( https://arxiv.org"
// trailer, a dashed rule, or the end of the segment. With the blank-line
// layout it also ends at the next blank line and must start indented.
//
// Wrapped header values continue on indented lines, so Title: and Authors:
// also stop at the first unindented line after them.
package digest

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

// ListingMarker separates the digest preamble from the paper listing.
var ListingMarker = strings.Repeat("-", 78) + `\\`

const segmentOpener = "arXiv:"

var (
	idPattern         = regexp.MustCompile(`arXiv:(\d+\.\d+)`)
	titlePattern      = regexp.MustCompile(`(?s)Title:(.*?)(?:Authors:|\n\S|$)`)
	authorsPattern    = regexp.MustCompile(`(?s)Authors:(.*?)(?:Categories:|Comments:|\n\S|$)`)
	categoriesPattern = regexp.MustCompile(`Categories:([^\n]*)`)
)

// metadataLabels are the line prefixes that belong to an entry's header block.
var metadataLabels = []string{
	"Title:", "Authors:", "Categories:", "Comments:", "Date:", "License:",
	"Journal-ref:", "DOI:", "Report-no:", "MSC-class:", "ACM-class:",
}

// Summary counts what happened to the segments of one digest.
type Summary struct {
	Segments int
	Parsed   int
	Dropped  int
}

// Extract returns the well-formed paper records of a digest in digest order.
func Extract(raw string) []types.PaperRecord {
	records, _ := Parse(raw)
	return records
}

// Parse is Extract plus segment statistics. Segments missing an arXiv
// identifier or a title are dropped, counted, and logged at debug level.
func Parse(raw string) ([]types.PaperRecord, Summary) {
	segments := Segment(raw)
	summary := Summary{Segments: len(segments)}

	var records []types.PaperRecord
	for i, seg := range segments {
		rec, ok := parseSegment(seg)
		if !ok {
			summary.Dropped++
			head, _, _ := strings.Cut(seg, "\n")
			zap.L().Debug("dropping malformed digest segment", zap.Int("segment", i), zap.String("head", head))
			continue
		}
		records = append(records, rec)
	}
	summary.Parsed = len(records)
	return records, summary
}

// Segment splits the listing part of a digest into one chunk per paper.
// Text before ListingMarker (up to and including its first occurrence) is
// discarded; if the marker is absent the whole text is treated as listing.
// Lines before the first "arXiv:" opener belong to no segment.
func Segment(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	if idx := strings.Index(raw, ListingMarker); idx >= 0 {
		raw = raw[idx+len(ListingMarker):]
	}

	var segments []string
	var current strings.Builder
	open := false

	flush := func() {
		if open && current.Len() > 0 {
			segments = append(segments, current.String())
		}
		current.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, segmentOpener) {
			flush()
			open = true
		}
		if !open {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()

	return segments
}

func parseSegment(seg string) (types.PaperRecord, bool) {
	idMatch := idPattern.FindStringSubmatch(seg)
	if idMatch == nil {
		return types.PaperRecord{}, false
	}

	meta, abstract := splitSegment(seg)

	title := Normalize(group(titlePattern, meta))
	if title == "" {
		return types.PaperRecord{}, false
	}

	return types.NewPaperRecord(
		idMatch[1],
		title,
		Normalize(group(authorsPattern, meta)),
		Normalize(group(categoriesPattern, meta)),
		Normalize(abstract),
	), true
}

// group returns the first capture group of re in s, or "".
func group(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// splitSegment separates the metadata block from the abstract. Label
// searches run on the metadata block only, so an abstract that happens to
// contain "Authors:" cannot bleed into the header fields.
func splitSegment(seg string) (meta, abstract string) {
	lines := strings.Split(seg, "\n")

	titleAt := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "Title:") {
			titleAt = i
			break
		}
	}
	if titleAt < 0 {
		return seg, ""
	}

	sep, blankLayout := findSeparator(lines, titleAt+1)
	if sep < 0 {
		return seg, ""
	}

	var body []string
	for _, l := range lines[sep+1:] {
		t := strings.TrimSpace(l)
		if isAbstractEnd(t) {
			break
		}
		if t == "" {
			if len(body) == 0 {
				continue
			}
			if blankLayout {
				break
			}
			body = append(body, "")
			continue
		}
		if len(body) == 0 && blankLayout && !isIndented(l) {
			break
		}
		body = append(body, l)
	}

	return strings.Join(lines[:sep], "\n"), strings.Join(body, "\n")
}

// findSeparator returns the index of the line that opens the abstract and
// whether it is a blank line (as opposed to `\\`). A candidate followed by
// another metadata label (e.g. Comments: after a blank line) is skipped.
func findSeparator(lines []string, from int) (int, bool) {
	for i := from; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t != `\\` && t != "" {
			continue
		}
		next := nextNonBlank(lines, i+1)
		if t == "" && next >= 0 && strings.TrimSpace(lines[next]) == `\\` {
			i = next - 1
			continue
		}
		if next >= 0 && isMetadataLine(lines[next]) {
			i = next
			continue
		}
		return i, t == ""
	}
	return -1, false
}

func nextNonBlank(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

func isMetadataLine(line string) bool {
	for _, label := range metadataLabels {
		if strings.HasPrefix(line, label) {
			return true
		}
	}
	return false
}

func isAbstractEnd(trimmed string) bool {
	return strings.HasPrefix(trimmed, `\\`) ||
		strings.HasPrefix(trimmed, "( https://arxiv.org") ||
		strings.HasPrefix(trimmed, "----")
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// Normalize collapses every whitespace run (including a line break followed
// by indentation) into one space, trims the ends, and applies Unicode NFC.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
