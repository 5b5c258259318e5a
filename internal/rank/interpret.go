// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/digest-ranker/internal/llm"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

// ErrUnparseable is returned by Interpret when the ranking text is not a
// comma-separated list of integers.
var ErrUnparseable = eris.New("rank: unparseable ranking response")

// ParseIndices splits a comma-separated ranking into 1-based integers in the
// order given. Empty tokens (stray commas) are skipped, as are integers too
// large for int, which can never be in range. Any other non-integer token,
// or a text with no integers at all, is an error.
func ParseIndices(text string) ([]int, error) {
	var out []int
	seen := false
	for _, tok := range strings.Split(text, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				seen = true
				continue
			}
			return nil, eris.Wrapf(ErrUnparseable, "token %q", tok)
		}
		seen = true
		out = append(out, n)
	}
	if !seen {
		return nil, eris.Wrap(ErrUnparseable, "no indices in ranking text")
	}
	return out, nil
}

// Interpret maps a service response back onto records. Indices are 1-based
// positions in records; those outside [1, len(records)] are dropped. The
// service's order is kept, duplicates included, and the result is cut to
// topN (clamped to [1, len(records)]). Usage comes from the response
// envelope; cost is left for the caller to fill in.
func Interpret(resp *llm.Response, records []types.PaperRecord, topN int) (types.RankingOutcome, error) {
	if resp == nil {
		return types.RankingOutcome{}, eris.Wrap(ErrUnparseable, "nil response")
	}

	indices, err := ParseIndices(resp.Text)
	if err != nil {
		return types.RankingOutcome{}, err
	}

	topN = ClampTopN(topN, len(records))
	papers := make([]types.PaperRecord, 0, topN)
	for _, idx := range indices {
		if len(papers) == topN {
			break
		}
		i := idx - 1
		if i < 0 || i >= len(records) {
			continue
		}
		papers = append(papers, records[i])
	}

	return types.RankingOutcome{
		Papers: papers,
		Usage: types.UsageStats{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// Fallback is the degraded outcome: the first topN records in input order
// with zero usage.
func Fallback(records []types.PaperRecord, topN int, reason string) types.RankingOutcome {
	topN = ClampTopN(topN, len(records))
	papers := make([]types.PaperRecord, topN)
	copy(papers, records[:topN])
	return types.RankingOutcome{
		Papers:         papers,
		Fallback:       true,
		FallbackReason: reason,
	}
}
