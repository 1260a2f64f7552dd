package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Batch chart pattern scanner for daily market data",
	Long: `scanctl runs whole-market chart pattern scans over daily bars.

A scan fetches every session the pattern's lookback needs, computes
features, filters the candidate universe, and evaluates one pattern
family per run.

Examples:
  scanctl scan --pattern highest_high_breakout --from 2024-01-02 --to 2024-01-31
  scanctl patterns
  scanctl serve
  scanctl schedule`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
