// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank orders candidate papers for a reader profile by delegating
// the judgment to a ranking service. Build turns records into a request,
// Interpret maps the service's comma-separated indices back to records, and
// Ranker wires both around the retry controller and the usage accountant.
package rank

import (
	"fmt"
	"strings"

	"github.com/pdiddy/digest-ranker/internal/llm"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

// systemInstruction is sent with every ranking request.
const systemInstruction = `You are a research assistant who ranks newly announced papers for one reader. ` +
	`Reply with paper indices only, as a comma-separated list, most relevant first. Do not add any other text.`

// Options are the sampling settings carried by every request.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

// ClampTopN limits topN to [1, n]. It returns 0 when n is 0.
func ClampTopN(topN, n int) int {
	if n <= 0 {
		return 0
	}
	if topN < 1 {
		return 1
	}
	if topN > n {
		return n
	}
	return topN
}

// Build serializes records and profile into a ranking request. Records are
// numbered from 1 in input order. ok is false when records is empty, in
// which case no request should be sent. The same input always yields the
// same request.
func Build(records []types.PaperRecord, profile string, topN int, opts Options) (llm.Request, bool) {
	if len(records) == 0 {
		return llm.Request{}, false
	}
	topN = ClampTopN(topN, len(records))

	var b strings.Builder
	b.WriteString("Reader profile:\n")
	b.WriteString(profile)
	b.WriteString("\n\nCandidate papers, one per line (index | title | categories | abstract):\n")
	for i, r := range records {
		b.WriteString(formatCandidate(i+1, r))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nReturn the %d most relevant papers for this reader as a comma-separated list of their indices, most relevant first.\n", topN)

	return llm.Request{
		Model:       opts.Model,
		System:      systemInstruction,
		User:        b.String(),
		TopN:        topN,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}, true
}

func formatCandidate(index int, r types.PaperRecord) string {
	return fmt.Sprintf("%d | %s | %s | %s", index, r.Title, r.Categories, r.Abstract)
}
