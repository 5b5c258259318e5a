// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

func testRecords(n int) []types.PaperRecord {
	records := make([]types.PaperRecord, n)
	for i := range records {
		records[i] = types.NewPaperRecord(
			fmt.Sprintf("2401.%05d", i+1),
			fmt.Sprintf("Paper %d", i+1),
			"Author",
			"cs.LG",
			fmt.Sprintf("Abstract %d.", i+1),
		)
	}
	return records
}

func TestClampTopN(t *testing.T) {
	tests := []struct {
		topN, n, want int
	}{
		{5, 10, 5},
		{10, 3, 3},
		{0, 3, 1},
		{-2, 3, 1},
		{3, 3, 3},
		{5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("topN=%d n=%d", tt.topN, tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, ClampTopN(tt.topN, tt.n))
		})
	}
}

func TestBuild(t *testing.T) {
	records := testRecords(3)
	opts := Options{Model: "gpt-4o-mini", Temperature: 0.2, MaxTokens: 50}

	req, ok := Build(records, "I study optimization.", 2, opts)
	require.True(t, ok)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 0.2, req.Temperature)
	assert.Equal(t, int64(50), req.MaxTokens)
	assert.Equal(t, 2, req.TopN)
	assert.Equal(t, systemInstruction, req.System)

	assert.Contains(t, req.User, "I study optimization.")
	assert.Contains(t, req.User, "1 | Paper 1 | cs.LG | Abstract 1.\n2 | Paper 2 | cs.LG | Abstract 2.\n3 | Paper 3 | cs.LG | Abstract 3.\n")
	assert.Contains(t, req.User, "Return the 2 most relevant papers")
}

func TestBuild_PreservesInputOrder(t *testing.T) {
	records := testRecords(4)
	records[0], records[3] = records[3], records[0]

	req, ok := Build(records, "profile", 4, Options{})
	require.True(t, ok)

	first := strings.Index(req.User, "1 | Paper 4 |")
	last := strings.Index(req.User, "4 | Paper 1 |")
	assert.GreaterOrEqual(t, first, 0)
	assert.Greater(t, last, first)
}

func TestBuild_ClampsTopN(t *testing.T) {
	records := testRecords(3)

	tests := []struct {
		name string
		topN int
		want int
	}{
		{"above candidate count", 10, 3},
		{"zero", 0, 1},
		{"negative", -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := Build(records, "p", tt.topN, Options{})
			require.True(t, ok)
			assert.Equal(t, tt.want, req.TopN)
			assert.Contains(t, req.User, fmt.Sprintf("Return the %d most relevant", tt.want))
		})
	}
}

func TestBuild_Empty(t *testing.T) {
	_, ok := Build(nil, "profile", 5, Options{})
	assert.False(t, ok)
}

func TestBuild_Deterministic(t *testing.T) {
	records := testRecords(5)
	a, _ := Build(records, "profile text", 3, Options{Model: "m"})
	b, _ := Build(records, "profile text", 3, Options{Model: "m"})
	assert.Equal(t, a, b)
}
