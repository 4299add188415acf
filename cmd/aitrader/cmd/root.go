package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "aitrader",
	Short: "Historical-replay trading simulation for autonomous agents",
	Long: `aitrader replays historical market data day by day and lets a roster of
autonomous agents trade against it, with a hard anti-look-ahead guarantee:
no agent can ever observe data dated after the current simulated day.

It provides tools for:
  - Running multi-agent experiments over a configured date range
  - Resuming a crashed run from its journal
  - Reporting per-agent results and exporting trade histories`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
