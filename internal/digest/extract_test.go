// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package digest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

var rule = strings.Repeat("-", 78)

// sampleDigest has four entries: two with the `\\` abstract layout, one with
// the blank-line layout, and one without a title.
func sampleDigest() string {
	return strings.ReplaceAll(`From the arXiv mailing list
Subject: cs daily Subj-class mailing

Submissions received from  Mon 15 Jan 24  to  Tue 16 Jan 24
{{RULE}}\\
arXiv:2401.00001
Date: Tue, 16 Jan 2024 10:00:00 GMT   (120kb)

Title: Sparse Attention for Long
  Context Transformers
Authors: Ada Lovelace, Alan
  Turing
Categories: cs.LG cs.CL
Comments: 12 pages, 4 figures
\\
  We study sparse attention patterns
  for long documents.
\\ ( https://arxiv.org/abs/2401.00001 ,  120kb)
{{RULE}}
\\
arXiv:2401.00002
Date: Tue, 16 Jan 2024 11:00:00 GMT   (40kb)

Title: Graph Networks for Molecules
Authors: Marie Curie
Categories: q-bio.BM

  Message passing networks predict
  molecular properties.

{{RULE}}
\\
arXiv:2401.00003
Date: Tue, 16 Jan 2024 12:00:00 GMT   (5kb)

Authors: Nobody In Particular
Categories: cs.AI
\\
  An entry without a title.
\\ ( https://arxiv.org/abs/2401.00003 ,  5kb)
{{RULE}}
\\
arXiv:2401.00004
Title: Robust Parsing of Loose Formats
Categories: cs.CL
\\
  Abstracts may mention Authors: inline.

  They may also contain blank lines.
\\ ( https://arxiv.org/abs/2401.00004 ,  8kb)
{{RULE}}
\\
`, "{{RULE}}", rule)
}

func TestParse_SampleDigest(t *testing.T) {
	records, summary := Parse(sampleDigest())

	assert.Equal(t, Summary{Segments: 4, Parsed: 3, Dropped: 1}, summary)
	require.Len(t, records, 3)

	assert.Equal(t, types.PaperRecord{
		ExternalID: "2401.00001",
		Title:      "Sparse Attention for Long Context Transformers",
		Authors:    "Ada Lovelace, Alan Turing",
		Categories: "cs.LG cs.CL",
		Abstract:   "We study sparse attention patterns for long documents.",
		Link:       "https://arxiv.org/abs/2401.00001",
	}, records[0])

	assert.Equal(t, types.PaperRecord{
		ExternalID: "2401.00002",
		Title:      "Graph Networks for Molecules",
		Authors:    "Marie Curie",
		Categories: "q-bio.BM",
		Abstract:   "Message passing networks predict molecular properties.",
		Link:       "https://arxiv.org/abs/2401.00002",
	}, records[1])

	assert.Equal(t, types.PaperRecord{
		ExternalID: "2401.00004",
		Title:      "Robust Parsing of Loose Formats",
		Authors:    types.UnknownAuthors,
		Categories: "cs.CL",
		Abstract:   "Abstracts may mention Authors: inline. They may also contain blank lines.",
		Link:       "https://arxiv.org/abs/2401.00004",
	}, records[2])
}

func TestExtract_WellFormedCount(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 25} {
		t.Run(fmt.Sprintf("%d segments", n), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("preamble text\n" + rule + `\\` + "\n")
			for i := 0; i < n; i++ {
				fmt.Fprintf(&b, "arXiv:2402.%05d\nTitle: Paper %d\nAuthors: Author %d\nCategories: cs.LG\n\\\\\n  Abstract %d.\n\\\\ ( https://arxiv.org/abs/2402.%05d ,  1kb)\n", i, i, i, i, i)
			}

			records := Extract(b.String())
			require.Len(t, records, n)
			for i, r := range records {
				assert.NotEmpty(t, r.Title)
				assert.NotEmpty(t, r.ExternalID)
				assert.Equal(t, fmt.Sprintf("2402.%05d", i), r.ExternalID)
				assert.Equal(t, fmt.Sprintf("Abstract %d.", i), r.Abstract)
			}
		})
	}
}

func TestExtract_DropsMalformedSegments(t *testing.T) {
	tests := []struct {
		name    string
		digest  string
		wantIDs []string
	}{
		{
			name:    "missing title",
			digest:  "arXiv:2401.10001\nTitle: Kept\n\narXiv:2401.10002\nAuthors: No Title\n",
			wantIDs: []string{"2401.10001"},
		},
		{
			name:    "old-style identifier without dotted number",
			digest:  "arXiv:math/0601001\nTitle: Old Scheme\n\narXiv:2401.10003\nTitle: New Scheme\n",
			wantIDs: []string{"2401.10003"},
		},
		{
			name:    "empty title value",
			digest:  "arXiv:2401.10004\nTitle:   \nAuthors: Someone\n",
			wantIDs: nil,
		},
		{
			name:    "text without any opener",
			digest:  "Title: Floating\nAuthors: Nobody\n",
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, r := range Extract(tt.digest) {
				ids = append(ids, r.ExternalID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "discards preamble before marker",
			raw:  "header arXiv:9999.99999 mention\n" + rule + `\\` + "\narXiv:2401.1\nTitle: A\n",
			want: []string{"arXiv:2401.1\nTitle: A\n\n"},
		},
		{
			name: "marker absent keeps whole text",
			raw:  "arXiv:2401.1\nTitle: A\narXiv:2401.2\nTitle: B",
			want: []string{"arXiv:2401.1\nTitle: A\n", "arXiv:2401.2\nTitle: B\n"},
		},
		{
			name: "lines before first opener are dropped",
			raw:  "stray line\n\narXiv:2401.1\n",
			want: []string{"arXiv:2401.1\n\n"},
		},
		{
			name: "opener must start the line",
			raw:  "arXiv:2401.1\n  see arXiv:2401.2 for details\n",
			want: []string{"arXiv:2401.1\n  see arXiv:2401.2 for details\n\n"},
		},
		{
			name: "crlf line endings",
			raw:  "arXiv:2401.1\r\nTitle: A\r\n",
			want: []string{"arXiv:2401.1\nTitle: A\n\n"},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.raw))
		})
	}
}

func TestExtract_AbstractLayouts(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		want    string
	}{
		{
			name:    "backslash separator after comments",
			segment: "arXiv:2401.20001\nTitle: T\nAuthors: A\nComments: 3 pages\n\\\\\n  First line\n  second line.\n\\\\ ( https://arxiv.org/abs/2401.20001 ,  3kb)\n",
			want:    "First line second line.",
		},
		{
			name:    "double newline then indented text",
			segment: "arXiv:2401.20002\nTitle: T\nAuthors: A\n\n  Indented abstract\n  continues.\n\nTrailing text\n",
			want:    "Indented abstract continues.",
		},
		{
			name:    "comments paragraph before blank-line abstract",
			segment: "arXiv:2401.20003\nTitle: T\nAuthors: A. Author\n\nComments: 5 pages\n\n  The abstract after comments.\n",
			want:    "The abstract after comments.",
		},
		{
			name:    "blank line before backslash separator",
			segment: "arXiv:2401.20004\nTitle: T\nCategories: cs.AI\n\n\\\\\n  Still found.\n\\\\\n",
			want:    "Still found.",
		},
		{
			name:    "unindented text after blank line is not an abstract",
			segment: "arXiv:2401.20005\nTitle: T\n\nNot an abstract\n",
			want:    "",
		},
		{
			name:    "no separator at all",
			segment: "arXiv:2401.20006\nTitle: T\nAuthors: A\n",
			want:    "",
		},
		{
			name:    "abstract runs to end of segment",
			segment: "arXiv:2401.20007\nTitle: T\n\\\\\n  Unterminated abstract",
			want:    "Unterminated abstract",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Extract(tt.segment)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].Abstract)
		})
	}
}

func TestExtract_HeaderFields(t *testing.T) {
	seg := "arXiv:2401.30001\nTitle: Multi\n  Line  Title\nAuthors: One,\n  Two\nComments: none\nCategories: cs.IR stat.ML\n"
	records := Extract(seg)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "Multi Line Title", r.Title)
	assert.Equal(t, "One, Two", r.Authors)
	assert.Equal(t, "cs.IR stat.ML", r.Categories)
	assert.Equal(t, "https://arxiv.org/abs/2401.30001", r.Link)
}

func TestExtract_TitleStopsAtNextHeaderLine(t *testing.T) {
	records := Extract("arXiv:2401.30002\nTitle: Short\nCategories: cs.CL\n")
	require.Len(t, records, 1)
	assert.Equal(t, "Short", records[0].Title)
	assert.Equal(t, types.UnknownAuthors, records[0].Authors)
	assert.Equal(t, "", records[0].Abstract)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{"line one\n  line two", "line one line two"},
		{"tabs\tand\n\n\tnewlines", "tabs and newlines"},
		{"", ""},
		{"école", "école"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "Normalize must be idempotent")
		})
	}
}
