package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/stagehand/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stagehand",
	Short: "Stagehand runs multi-stage experiments with tiered failure escalation",
	Long: `Stagehand drives many independent multi-stage trials from one control loop.
Trials share a bounded resource pool and recover from failures according to
per-stage, per-trial and per-experiment escalation policies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "experiment.yaml", "Experiment definition file")
}

func configPath(cmd *cobra.Command, args []string) string {
	path, _ := cmd.Flags().GetString("config")
	if !cmd.Flags().Changed("config") && len(args) > 0 {
		path = args[0]
	}
	return path
}
