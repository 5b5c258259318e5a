package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of digest-ranker",
	// Skips config and secret loading.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("digest-ranker %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
