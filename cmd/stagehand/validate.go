package main

import (
	"github.com/aretw0/stagehand/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config]",
	Short: "Check an experiment definition",
	Long:  `Parses the experiment file, checks the state schema and builds every stage once to validate its options.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Validate(cmd.OutOrStdout(), configPath(cmd, args), nil)
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph [config]",
	Short: "Export the stage pipeline as a Mermaid diagram",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Graph(cmd.OutOrStdout(), configPath(cmd, args), nil)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(graphCmd)
}
