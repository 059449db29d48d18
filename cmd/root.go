package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var Version = "dev"

var (
	// jsonOutput controls whether output is formatted as JSON
	jsonOutput bool
	// jsonPath selects part of the JSON output
	jsonPath string
	// portfolioFlag overrides the active portfolio for one invocation
	portfolioFlag int64
)

var rootCmd = &cobra.Command{
	Use:   "fin",
	Short: "FinBuddy portfolio tracker CLI",
	Long: `A terminal client for the FinBuddy backend.

Track portfolios and holdings, watch live prices and wishlist alerts,
compare against market benchmarks and export reports. Run 'fin ui' for
the interactive dashboard.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&jsonPath, "jsonpath", "", "Select part of the JSON output, e.g. '$[*].Symbol'")
	rootCmd.PersistentFlags().Int64VarP(&portfolioFlag, "portfolio", "p", 0, "Portfolio ID (uses the active portfolio if not specified)")
}

// GetJSONMode returns whether JSON output mode is enabled.
func GetJSONMode() bool {
	return jsonOutput || jsonPath != ""
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
