package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/output"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// newMarketCmd creates the market command group.
func newMarketCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Market quotes, exchange rates and symbol search",
		Long: `Query market data through the FinBuddy backend.

Examples:
  fin market quote AAPL             # Quote for Apple
  fin market quote AAPL MSFT GOOGL  # Batch quote
  fin market quotes                 # Live prices of the portfolio's holdings
  fin market watch                  # Keep refreshing live prices until Ctrl+C
  fin market rate INR               # USD to INR exchange rate
  fin market search apple           # Find symbols`,
	}
	cmd.SilenceUsage = true

	var kind, assetType string
	searchCmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search for symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarketSearch(cmd, opts, strings.Join(args, " "), finbuddy.SearchKind(kind), assetType)
		},
	}
	searchCmd.Flags().StringVarP(&kind, "kind", "k", string(finbuddy.SearchAll), "What to search: stocks, bonds, mutual-funds, sips or all")
	searchCmd.Flags().StringVarP(&assetType, "type", "t", "", "Narrow 'all' results to one asset type")

	var interval time.Duration
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the portfolio's live prices until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") && opts.marketRefresh > 0 {
				interval = opts.marketRefresh
			}
			return runMarketWatch(cmd, opts, interval)
		},
	}
	watchCmd.Flags().DurationVarP(&interval, "interval", "i", 30*time.Second, "Refresh interval")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "quote SYMBOL [SYMBOL...]",
			Short: "Get quotes for one or more symbols",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMarketQuote(cmd, opts, args)
			},
		},
		&cobra.Command{
			Use:   "quotes",
			Short: "Live prices of the portfolio's holdings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMarketQuotes(cmd, opts)
			},
		},
		watchCmd,
		&cobra.Command{
			Use:   "rate [FROM] TO",
			Short: "Get an exchange rate (FROM defaults to USD)",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				from, to := currency.Base, args[0]
				if len(args) == 2 {
					from, to = args[0], args[1]
				}
				return runMarketRate(cmd, opts, currency.Normalize(from), currency.Normalize(to))
			},
		},
		&cobra.Command{
			Use:   "benchmark INDEX",
			Short: "Get the latest value of a market index",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMarketBenchmark(cmd, opts, args[0])
			},
		},
		searchCmd,
	)

	return cmd
}

var quoteHeaders = []string{"Symbol", "Price", "Change", "Change %", "High", "Low", "Volume"}

func quoteRows(conv *currency.Converter, quotes []finbuddy.Quote) [][]string {
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []string{
			q.Symbol,
			conv.Format(q.Price),
			finbuddy.FormatGainLoss(conv.Convert(q.Change)),
			currency.FormatPercentage(q.ChangePercent),
			conv.Format(q.High),
			conv.Format(q.Low),
			finbuddy.FormatVolume(q.Volume),
		})
	}
	return rows
}

func runMarketQuote(cmd *cobra.Command, opts *apiOptions, symbols []string) error {
	s := opts.connect()
	ctx := cmd.Context()
	s.useCurrency(ctx)

	var quotes []finbuddy.Quote
	if len(symbols) == 1 {
		q, err := s.client.GetStockQuote(ctx, symbols[0])
		if err != nil {
			return fmt.Errorf("failed to fetch quote: %w", err)
		}
		quotes = []finbuddy.Quote{*q}
	} else {
		var err error
		quotes, err = s.client.GetBatchQuotes(ctx, symbols)
		if err != nil {
			return fmt.Errorf("failed to fetch quotes: %w", err)
		}
	}

	if len(quotes) == 0 && !opts.jsonMode {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No quotes returned")
		return nil
	}
	return opts.formatter(cmd.OutOrStdout()).Table(quoteHeaders, quoteRows(s.deps.Currency, quotes))
}

func printQuotes(cmd *cobra.Command, opts *apiOptions, conv *currency.Converter, m *controller.Market) error {
	if m.Empty() && !opts.jsonMode {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), controller.EmptyMarketMessage)
		return err
	}
	return opts.formatter(cmd.OutOrStdout()).Table(quoteHeaders, quoteRows(conv, m.Quotes()))
}

func runMarketQuotes(cmd *cobra.Command, opts *apiOptions) error {
	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return err
	}

	m := controller.NewMarket(s.client, 0, s.deps)
	if err := m.Open(ctx, id); err != nil {
		return err
	}
	return printQuotes(cmd, opts, s.deps.Currency, m)
}

// runMarketWatch prints the live prices after every successful poll until
// the command's context is cancelled.
func runMarketWatch(cmd *cobra.Command, opts *apiOptions, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return err
	}

	m := controller.NewMarket(s.client, interval, s.deps)
	m.OnRender(func() {
		if m.State() != controller.StateReady {
			return
		}
		if !opts.jsonMode {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", time.Now().Format("15:04:05"))
		}
		_ = printQuotes(cmd, opts, s.deps.Currency, m)
	})
	if err := m.Open(ctx, id); err != nil {
		return err
	}

	m.Start(ctx)
	defer m.Stop()
	<-ctx.Done()
	return nil
}

func runMarketRate(cmd *cobra.Command, opts *apiOptions, from, to string) error {
	if !currency.Valid(from) || !currency.Valid(to) {
		return fmt.Errorf("unknown currency pair %s/%s", from, to)
	}

	s := opts.connect()
	rate, err := s.client.GetExchangeRate(cmd.Context(), from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch exchange rate: %w", err)
	}

	f := opts.formatter(cmd.OutOrStdout())
	if opts.jsonMode {
		return f.Print(rate)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s\n", rate.From, rate.Rate.String(), rate.To)
	return err
}

func runMarketBenchmark(cmd *cobra.Command, opts *apiOptions, index string) error {
	s := opts.connect()
	v, err := s.client.GetBenchmarkValue(cmd.Context(), index)
	if err != nil {
		return fmt.Errorf("failed to fetch benchmark: %w", err)
	}

	f := opts.formatter(cmd.OutOrStdout())
	if opts.jsonMode {
		return f.Print(v)
	}
	fields := []output.Field{
		{Label: "Index", Value: v.Symbol},
		{Label: "Value", Value: v.Value.StringFixed(2)},
	}
	if v.Timestamp != "" {
		fields = append(fields, output.Field{Label: "As of", Value: v.Timestamp})
	}
	return f.Details(fields)
}

func runMarketSearch(cmd *cobra.Command, opts *apiOptions, query string, kind finbuddy.SearchKind, assetType string) error {
	query = strings.TrimSpace(query)
	if len(query) < controller.MinSearchLength {
		return fmt.Errorf("search query must be at least %d characters", controller.MinSearchLength)
	}

	s := opts.connect()
	results, err := s.client.Search(cmd.Context(), kind, query, assetType)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 && !opts.jsonMode {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No results for %q\n", query)
		return nil
	}

	headers := []string{"Symbol", "Description", "Type", "Exchange", "Currency"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Symbol, r.Description, r.Type, r.Exchange, r.Currency})
	}
	return opts.formatter(cmd.OutOrStdout()).Table(headers, rows)
}

func init() {
	var opts apiOptions
	cmd := newMarketCmd(&opts)
	cmd.PersistentPreRunE = preRun(&opts)
	rootCmd.AddCommand(cmd)
}
