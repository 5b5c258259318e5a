// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the digest-ranker CLI.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-ranker/internal/config"
	"github.com/pdiddy/digest-ranker/internal/secrets"
	"github.com/pdiddy/digest-ranker/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg holds the configuration loaded before every subcommand.
var cfg *types.Config

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the digest-ranker CLI.
var rootCmd = &cobra.Command{
	Use:   "digest-ranker",
	Short: "Rank the papers of an arXiv digest against a reader profile",
	Long: `digest-ranker reads an arXiv mailing digest (plain text or the .eml it
arrived in), extracts the papers, and asks an LLM ranking service which of
them best match a free-text reader profile.

Subcommands: parse inspects the papers in a digest, rank produces a report,
serve exposes the upload endpoint, and history lists past runs and spend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.LoadDotEnv(".env"); err != nil {
			return err
		}
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cfg.Ranking.APIKey == "" {
			cfg.Ranking.APIKey = secrets.APIKeyFor(cfg.Ranking.Provider, loadedSecrets)
		}

		return config.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./digest-ranker.yaml or ~/.config/digest-ranker/digest-ranker.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
