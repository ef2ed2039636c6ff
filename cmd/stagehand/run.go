package main

import (
	"github.com/aretw0/stagehand/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [config]",
	Short: "Run an experiment",
	Long: `Runs every queued trial of the experiment and prints a summary.
An experiment reset restarts the whole experiment, up to --max-restarts times.
An experiment abort exits with status 2.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		maxRestarts, _ := cmd.Flags().GetInt("max-restarts")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		debug, _ := cmd.Flags().GetBool("debug")
		quiet, _ := cmd.Flags().GetBool("quiet")

		return cli.Execute(cli.RunOptions{
			ConfigPath:  configPath(cmd, args),
			MetricsAddr: metricsAddr,
			MaxRestarts: maxRestarts,
			DryRun:      dryRun,
			Debug:       debug,
			Quiet:       quiet,
			Out:         cmd.OutOrStdout(),
			Err:         cmd.ErrOrStderr(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("metrics-addr", "", "Serve /status and /metrics on this address (overrides metrics.addr)")
	runCmd.Flags().Int("max-restarts", -1, "Restarts allowed on experiment reset (overrides max_restarts; -1 keeps it)")
	runCmd.Flags().Bool("dry-run", false, "Log results instead of shipping them to the configured sink")
	runCmd.Flags().Bool("debug", false, "Enable debug logging of stage transitions")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner and summary")
}
