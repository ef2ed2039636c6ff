package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/stagehand"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stagehand",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stagehand version %s\n", strings.TrimSpace(stagehand.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
