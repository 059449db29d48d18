package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// newBenchmarkCmd creates the benchmark command group.
func newBenchmarkCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "benchmark",
		Aliases: []string{"benchmarks", "bm"},
		Short:   "Track market indices alongside a portfolio",
		Long: `Manage the market indices compared against the active portfolio.

Examples:
  fin benchmark                              # List benchmarks
  fin benchmark add ^GSPC "S&P 500"          # Track the S&P 500
  fin benchmark refresh                      # Update index values`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarkList(cmd, opts)
		},
	}
	cmd.SilenceUsage = true

	var req finbuddy.BenchmarkRequest
	addCmd := &cobra.Command{
		Use:   "add SYMBOL NAME",
		Short: "Track a market index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Symbol, req.Name = args[0], args[1]
			return runBenchmarkAdd(cmd, opts, req)
		},
	}
	addCmd.Flags().StringVarP(&req.IndexType, "type", "t", "", "Index type, e.g. EQUITY")
	addCmd.Flags().StringVarP(&req.Description, "description", "d", "", "Description")
	addCmd.Flags().StringVarP(&req.Currency, "currency", "c", "", "Currency the index is quoted in")

	deleteCmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a market index",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarkDelete(cmd, opts, args[0])
		},
	}
	deleteCmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List benchmarks",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBenchmarkList(cmd, opts)
			},
		},
		addCmd,
		deleteCmd,
		&cobra.Command{
			Use:   "refresh",
			Short: "Update index values from the market",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBenchmarkRefresh(cmd, opts)
			},
		},
	)

	return cmd
}

var benchmarkHeaders = []string{"ID", "Symbol", "Name", "Value", "Change", "Change %", "Updated"}

func benchmarkRows(bms []finbuddy.Benchmark) [][]string {
	rows := make([][]string, 0, len(bms))
	for _, b := range bms {
		rows = append(rows, []string{
			strconv.FormatInt(b.ID, 10),
			b.Symbol,
			b.Name,
			b.CurrentValue.StringFixed(2),
			finbuddy.FormatGainLoss(b.ChangeAmount),
			currency.FormatPercentage(b.ChangePercentage),
			b.LastUpdated,
		})
	}
	return rows
}

func openBenchmarks(cmd *cobra.Command, opts *apiOptions) (*controller.Benchmarks, error) {
	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return nil, err
	}

	b := controller.NewBenchmarks(s.client, s.deps)
	if err := b.Open(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

func printBenchmarks(cmd *cobra.Command, opts *apiOptions, bms []finbuddy.Benchmark) error {
	if len(bms) == 0 && !opts.jsonMode {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No benchmarks tracked. Add one with 'fin benchmark add SYMBOL NAME'.")
		return nil
	}
	return opts.formatter(cmd.OutOrStdout()).Table(benchmarkHeaders, benchmarkRows(bms))
}

func runBenchmarkList(cmd *cobra.Command, opts *apiOptions) error {
	b, err := openBenchmarks(cmd, opts)
	if err != nil {
		return err
	}
	return printBenchmarks(cmd, opts, b.List())
}

func runBenchmarkAdd(cmd *cobra.Command, opts *apiOptions, req finbuddy.BenchmarkRequest) error {
	b, err := openBenchmarks(cmd, opts)
	if err != nil {
		return err
	}

	created, err := b.Add(cmd.Context(), req)
	if err != nil {
		return err
	}
	if opts.jsonMode {
		return opts.formatter(cmd.OutOrStdout()).Print(created)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Tracking %s (%s)\n", created.Name, created.Symbol)
	return err
}

func runBenchmarkDelete(cmd *cobra.Command, opts *apiOptions, arg string) error {
	benchmarkID, err := parseID(arg, "benchmark")
	if err != nil {
		return err
	}

	b, err := openBenchmarks(cmd, opts)
	if err != nil {
		return err
	}
	if err := b.Delete(cmd.Context(), benchmarkID); err != nil {
		return cancelled(cmd, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed benchmark %d\n", benchmarkID)
	return err
}

func runBenchmarkRefresh(cmd *cobra.Command, opts *apiOptions) error {
	b, err := openBenchmarks(cmd, opts)
	if err != nil {
		return err
	}
	if err := b.Refresh(cmd.Context()); err != nil {
		return err
	}
	return printBenchmarks(cmd, opts, b.List())
}

func init() {
	var opts apiOptions
	cmd := newBenchmarkCmd(&opts)
	cmd.PersistentPreRunE = preRun(&opts)
	rootCmd.AddCommand(cmd)
}
