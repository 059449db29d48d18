package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/output"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// newPortfolioCmd creates the portfolio command group.
func newPortfolioCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"pf"},
		Short:   "Manage portfolios",
		Long: `List, create and switch portfolios and view their dashboard.

Examples:
  fin portfolio                        # List portfolios
  fin portfolio create "Retirement"    # Create and select a portfolio
  fin portfolio use 2                  # Make portfolio 2 the active one
  fin portfolio dashboard              # Summary of the active portfolio`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortfolioList(cmd, opts)
		},
	}
	cmd.SilenceUsage = true

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List portfolios",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPortfolioList(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "show ID",
			Short: "Show one portfolio",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPortfolioShow(cmd, opts, args[0])
			},
		},
		newPortfolioCreateCmd(opts),
		newPortfolioUpdateCmd(opts),
		newPortfolioDeleteCmd(opts),
		&cobra.Command{
			Use:   "use ID",
			Short: "Make a portfolio the active one",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPortfolioUse(cmd, opts, args[0])
			},
		},
		&cobra.Command{
			Use:     "dashboard",
			Aliases: []string{"dash"},
			Short:   "Show the portfolio dashboard",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPortfolioDashboard(cmd, opts)
			},
		},
		&cobra.Command{
			Use:     "recalculate",
			Aliases: []string{"refresh"},
			Short:   "Recalculate portfolio values on the backend",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPortfolioRecalculate(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "risk",
			Short: "Show risk metrics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPortfolioRisk(cmd, opts)
			},
		},
		newPortfolioHistoryCmd(opts),
		newPortfolioAnalyticsCmd(opts),
	)

	return cmd
}

func runPortfolioList(cmd *cobra.Command, opts *apiOptions) error {
	s := opts.connect()
	if err := s.nav.Init(cmd.Context()); err != nil {
		return err
	}

	list := s.nav.Portfolios()
	if len(list) == 0 && !opts.jsonMode {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No portfolios found. Create one with: fin portfolio create NAME")
		return nil
	}

	conv := s.deps.Currency
	active := s.nav.PortfolioID()
	headers := []string{"ID", "Name", "Currency", "Value", "Invested", "Gain/Loss", "G/L %", "Active"}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		mark := ""
		if p.ID == active {
			mark = "*"
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.BaseCurrency,
			conv.Format(p.TotalValue),
			conv.Format(p.TotalInvestment),
			conv.Format(p.TotalGainLoss),
			currency.FormatPercentage(p.GainLossPercentage),
			mark,
		})
	}
	return opts.formatter(cmd.OutOrStdout()).Table(headers, rows)
}

func runPortfolioShow(cmd *cobra.Command, opts *apiOptions, arg string) error {
	id, err := parseID(arg, "portfolio")
	if err != nil {
		return err
	}

	s := opts.connect()
	p, err := s.client.GetPortfolio(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to fetch portfolio: %w", err)
	}

	f := opts.formatter(cmd.OutOrStdout())
	if opts.jsonMode {
		return f.Print(p)
	}
	return f.Details(portfolioFields(*p))
}

func portfolioFields(p finbuddy.Portfolio) []output.Field {
	code := p.BaseCurrency
	if code == "" {
		code = currency.Base
	}
	fields := []output.Field{
		{Label: "ID", Value: strconv.FormatInt(p.ID, 10)},
		{Label: "Name", Value: p.Name},
	}
	if p.Description != "" {
		fields = append(fields, output.Field{Label: "Description", Value: p.Description})
	}
	return append(fields,
		output.Field{Label: "Currency", Value: code},
		output.Field{Label: "Total Value", Value: currency.FormatAmount(p.TotalValue, code)},
		output.Field{Label: "Invested", Value: currency.FormatAmount(p.TotalInvestment, code)},
		output.Field{Label: "Gain/Loss", Value: currency.FormatAmount(p.TotalGainLoss, code) + " (" + currency.FormatPercentage(p.GainLossPercentage) + ")"},
	)
}

func newPortfolioCreateCmd(opts *apiOptions) *cobra.Command {
	var in finbuddy.PortfolioInput

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a portfolio and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			s := opts.connect()
			if err := s.nav.Init(cmd.Context()); err != nil {
				return err
			}

			created, err := controller.NewPortfolios(s.client, s.nav, s.deps).Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			f := opts.formatter(cmd.OutOrStdout())
			if opts.jsonMode {
				return f.Print(created)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created portfolio %d: %s\n", created.ID, created.Name)
			return err
		},
	}

	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "Portfolio description")
	cmd.Flags().StringVarP(&in.BaseCurrency, "currency", "c", currency.Base, "Base currency (USD, INR, EUR, GBP)")
	return cmd
}

func newPortfolioUpdateCmd(opts *apiOptions) *cobra.Command {
	var name, description, code string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rename or re-describe a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "portfolio")
			if err != nil {
				return err
			}

			s := opts.connect()
			ctx := cmd.Context()
			current, err := s.client.GetPortfolio(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to fetch portfolio: %w", err)
			}
			in := finbuddy.PortfolioInput{
				Name:         current.Name,
				Description:  current.Description,
				BaseCurrency: current.BaseCurrency,
			}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("description") {
				in.Description = description
			}
			if cmd.Flags().Changed("currency") {
				in.BaseCurrency = code
			}

			if err := s.nav.Init(ctx); err != nil {
				return err
			}
			updated, err := controller.NewPortfolios(s.client, s.nav, s.deps).Update(ctx, id, in)
			if err != nil {
				return err
			}
			if opts.jsonMode {
				return opts.formatter(cmd.OutOrStdout()).Print(updated)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated portfolio %d: %s\n", updated.ID, updated.Name)
			return err
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&code, "currency", "c", "", "New base currency")
	return cmd
}

func newPortfolioDeleteCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a portfolio",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "portfolio")
			if err != nil {
				return err
			}

			s := opts.connect()
			ctx := cmd.Context()
			if err := s.nav.Init(ctx); err != nil {
				return err
			}
			pages := controller.NewPortfolios(s.client, s.nav, s.deps)
			if err := pages.Load(ctx); err != nil {
				return err
			}
			if err := pages.Delete(ctx, id); err != nil {
				return cancelled(cmd, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted portfolio %d\n", id)
			return err
		},
	}

	cmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runPortfolioUse(cmd *cobra.Command, opts *apiOptions, arg string) error {
	id, err := parseID(arg, "portfolio")
	if err != nil {
		return err
	}

	s := opts.connect()
	if err := s.nav.Init(cmd.Context()); err != nil {
		return err
	}
	if err := s.nav.Select(id); err != nil {
		return err
	}

	p := s.nav.Active()
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Active portfolio: %s (%d)\n", p.Name, p.ID)
	return err
}

func runPortfolioDashboard(cmd *cobra.Command, opts *apiOptions) error {
	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return err
	}

	d := controller.NewDashboard(s.client, s.deps)
	if err := d.Open(ctx, id); err != nil {
		return err
	}
	summary := d.Summary()
	if summary == nil {
		return fmt.Errorf("no dashboard data for portfolio %d", id)
	}

	f := opts.formatter(cmd.OutOrStdout())
	if opts.jsonMode {
		return f.Print(struct {
			*finbuddy.DashboardSummary
			Benchmarks []finbuddy.Benchmark `json:"benchmarks"`
		}{summary, d.Benchmarks()})
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s\n\n", summary.PortfolioName)
	fields := make([]output.Field, 0, 4)
	for _, c := range d.Cards() {
		v := c.Value
		if c.Change != "" {
			v += " (" + c.Change + ")"
		}
		fields = append(fields, output.Field{Label: c.Title, Value: v})
	}
	if err := f.Details(fields); err != nil {
		return err
	}

	conv := s.deps.Currency
	if len(summary.AssetAllocation) > 0 {
		_, _ = fmt.Fprintln(out, "\nAsset Allocation")
		rows := make([][]string, 0, len(summary.AssetAllocation))
		for _, a := range summary.AssetAllocation {
			rows = append(rows, []string{a.AssetType, conv.Format(a.TotalValue), a.Percentage.StringFixed(1) + "%"})
		}
		if err := f.Table([]string{"Type", "Value", "Share"}, rows); err != nil {
			return err
		}
	}

	if len(summary.TopPerformers) > 0 {
		_, _ = fmt.Fprintln(out, "\nTop Performers")
		rows := make([][]string, 0, len(summary.TopPerformers))
		for _, p := range summary.TopPerformers {
			rows = append(rows, []string{p.Symbol, p.Name, conv.Format(p.CurrentValue), currency.FormatPercentage(p.GainLossPercentage)})
		}
		if err := f.Table([]string{"Symbol", "Name", "Value", "G/L %"}, rows); err != nil {
			return err
		}
	}

	if bms := d.Benchmarks(); len(bms) > 0 {
		_, _ = fmt.Fprintln(out, "\nBenchmarks")
		return f.Table(benchmarkHeaders, benchmarkRows(bms))
	}
	return nil
}

func runPortfolioRecalculate(cmd *cobra.Command, opts *apiOptions) error {
	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return err
	}
	if err := s.nav.Open(ctx, id); err != nil {
		return err
	}
	if err := s.nav.Refresh(ctx); err != nil {
		return err
	}

	if p := s.nav.Active(); p != nil && !opts.jsonMode {
		return opts.formatter(cmd.OutOrStdout()).Details(portfolioFields(*p))
	}
	return nil
}

func runPortfolioRisk(cmd *cobra.Command, opts *apiOptions) error {
	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return err
	}

	risk, err := s.client.GetRiskAnalysis(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch risk analysis: %w", err)
	}

	f := opts.formatter(cmd.OutOrStdout())
	if opts.jsonMode {
		return f.Print(risk)
	}
	if len(risk) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No risk metrics available")
		return nil
	}

	keys := make([]string, 0, len(risk))
	for k := range risk {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]output.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, output.Field{Label: k, Value: fmt.Sprint(risk[k])})
	}
	return f.Details(fields)
}

// openAnalytics loads the analytics page for the selected range.
func openAnalytics(cmd *cobra.Command, opts *apiOptions, rangeFlag string) (*session, *controller.Analytics, error) {
	r, err := controller.ParseTimeRange(rangeFlag)
	if err != nil {
		return nil, nil, err
	}

	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return nil, nil, err
	}

	a := controller.NewAnalytics(s.client, s.deps)
	if err := a.SetRange(ctx, r); err != nil {
		return nil, nil, err
	}
	if err := a.Open(ctx, id); err != nil {
		return nil, nil, err
	}
	return s, a, nil
}

func newPortfolioHistoryCmd(opts *apiOptions) *cobra.Command {
	var timeRange string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show daily value snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, a, err := openAnalytics(cmd, opts, timeRange)
			if err != nil {
				return err
			}

			history := a.History()
			f := opts.formatter(cmd.OutOrStdout())
			if opts.jsonMode {
				return f.Print(history)
			}
			if len(history) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No history recorded for this range")
				return nil
			}

			conv := s.deps.Currency
			rows := make([][]string, 0, len(history))
			for _, h := range history {
				rows = append(rows, []string{
					h.RecordDate,
					conv.Format(h.TotalValue),
					conv.Format(h.TotalInvestment),
					conv.Format(h.GainLoss),
					currency.FormatPercentage(h.GainLossPercentage),
				})
			}
			return f.Table([]string{"Date", "Value", "Invested", "Gain/Loss", "G/L %"}, rows)
		},
	}

	cmd.Flags().StringVarP(&timeRange, "range", "r", string(controller.Range6M), "Time range (1M, 3M, 6M, 1Y, ALL)")
	return cmd
}

func newPortfolioAnalyticsCmd(opts *apiOptions) *cobra.Command {
	var timeRange string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show returns, allocation and performance charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, a, err := openAnalytics(cmd, opts, timeRange)
			if err != nil {
				return err
			}
			m := a.Metrics()
			if m == nil {
				return fmt.Errorf("no analytics data")
			}

			conv := s.deps.Currency
			fields := []output.Field{
				{Label: "Total Value", Value: conv.Format(m.TotalValue)},
				{Label: "Invested", Value: conv.Format(m.TotalInvested)},
				{Label: "Returns", Value: conv.Format(m.TotalReturns) + " (" + currency.FormatPercentage(m.ReturnsPct) + ")"},
				{Label: "CAGR", Value: currency.FormatPercentage(m.CAGR)},
			}
			if m.Best != nil && m.Worst != nil {
				fields = append(fields,
					output.Field{Label: "Best", Value: m.Best.DisplaySymbol() + " " + currency.FormatPercentage(m.Best.GainLossPercentage)},
					output.Field{Label: "Worst", Value: m.Worst.DisplaySymbol() + " " + currency.FormatPercentage(m.Worst.GainLossPercentage)},
				)
			}
			f := opts.formatter(cmd.OutOrStdout())
			if err := f.Details(fields); err != nil || opts.jsonMode {
				return err
			}

			out := cmd.OutOrStdout()
			for _, canvas := range []string{controller.CanvasPerformance, controller.CanvasAssetTypes, controller.CanvasReturns} {
				if c := s.deps.Charts.Get(canvas); c != nil {
					_, _ = fmt.Fprintf(out, "\n%s\n", c.View())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&timeRange, "range", "r", string(controller.Range6M), "Time range (1M, 3M, 6M, 1Y, ALL)")
	return cmd
}

func init() {
	var opts apiOptions
	cmd := newPortfolioCmd(&opts)
	cmd.PersistentPreRunE = preRun(&opts)
	rootCmd.AddCommand(cmd)
}
