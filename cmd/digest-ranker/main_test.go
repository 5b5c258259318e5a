// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/digest-ranker/internal/history"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

func profileCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("profile", "", "")
	cmd.Flags().String("profile-file", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestReadProfile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "profile.txt")
	require.NoError(t, os.WriteFile(file, []byte("\n  I study convex optimization.\n"), 0o644))

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "inline", args: []string{"--profile", " robotics "}, want: "robotics"},
		{name: "from file", args: []string{"--profile-file", file}, want: "I study convex optimization."},
		{name: "missing", args: nil, wantErr: true},
		{name: "blank", args: []string{"--profile", "   "}, wantErr: true},
		{name: "both", args: []string{"--profile", "x", "--profile-file", file}, wantErr: true},
		{name: "unreadable file", args: []string{"--profile-file", filepath.Join(t.TempDir(), "nope")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readProfile(profileCmd(t, tt.args...))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatRecords(t *testing.T) {
	var buf bytes.Buffer
	formatRecords([]types.PaperRecord{
		types.NewPaperRecord("2401.00001", "Convex Relaxations", "A. First", "math.OC", ""),
	}, &buf)
	assert.Contains(t, buf.String(), "2401.00001")
	assert.Contains(t, buf.String(), "Convex Relaxations")

	buf.Reset()
	formatRecords(nil, &buf)
	assert.Equal(t, "No papers found.\n", buf.String())
}

func TestFormatRuns(t *testing.T) {
	var buf bytes.Buffer
	formatRuns([]history.Run{{
		ID:        "0b1c6f3e-6a0e-4f55-9a43-2f1d1f6f3c11",
		StartedAt: time.Date(2024, 1, 16, 9, 30, 0, 0, time.UTC),
		Digest:    "digest.eml",
		Model:     "gpt-4o-mini",
		Usage:     types.UsageStats{EstimatedCostUSD: 0.0000648},
		Fallback:  true,
	}}, &buf)

	out := buf.String()
	assert.Contains(t, out, "0b1c6f3e-6a0e-4f55-9a43-2f1d1f6f3c11")
	assert.Contains(t, out, "0.000065")
	assert.Contains(t, out, "fallback")

	buf.Reset()
	formatRuns(nil, &buf)
	assert.Equal(t, "No runs recorded.\n", buf.String())
}
