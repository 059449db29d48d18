package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// newReportCmd creates the report command group.
func newReportCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"reports"},
		Short:   "Export portfolio reports",
		Long: `Download or e-mail the report of the active portfolio.

Examples:
  fin report pdf                      # Save portfolio-report-<id>.pdf here
  fin report pdf --dir ~/Downloads
  fin report email me@example.com
  fin report preview                  # Render a summary in the terminal`,
	}
	cmd.SilenceUsage = true

	var dir string
	pdfCmd := &cobra.Command{
		Use:   "pdf",
		Short: "Download the PDF report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportPDF(cmd, opts, dir)
		},
	}
	pdfCmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to save the report in")

	var style string
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a summary of the portfolio in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportPreview(cmd, opts, style)
		},
	}
	previewCmd.Flags().StringVar(&style, "style", "", "Rendering style: dark, light or notty (defaults to the theme preference)")

	cmd.AddCommand(
		pdfCmd,
		&cobra.Command{
			Use:   "email ADDRESS",
			Short: "E-mail the report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runReportEmail(cmd, opts, args[0])
			},
		},
		previewCmd,
	)

	return cmd
}

func openReports(cmd *cobra.Command, opts *apiOptions) (*controller.Reports, error) {
	s := opts.connect()
	id, err := s.portfolio(cmd.Context(), opts.portfolioID)
	if err != nil {
		return nil, err
	}

	r := controller.NewReports(s.client, s.deps)
	if err := r.Open(cmd.Context(), id); err != nil {
		return nil, err
	}
	return r, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runReportPDF(cmd *cobra.Command, opts *apiOptions, dir string) error {
	r, err := openReports(cmd, opts)
	if err != nil {
		return err
	}

	var progress func(w io.Writer, size int64) io.Writer
	if errOut := cmd.ErrOrStderr(); !opts.jsonMode && isTerminal(errOut) {
		progress = func(w io.Writer, size int64) io.Writer {
			bar := progressbar.NewOptions64(size,
				progressbar.OptionSetWriter(errOut),
				progressbar.OptionSetDescription("Downloading report"),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
			return io.MultiWriter(w, bar)
		}
	}

	path, err := r.Download(cmd.Context(), dir, progress)
	if err != nil {
		return err
	}
	if opts.jsonMode {
		return opts.formatter(cmd.OutOrStdout()).Print(map[string]string{"path": path})
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
	return err
}

func runReportEmail(cmd *cobra.Command, opts *apiOptions, address string) error {
	if !controller.ValidEmail(address) {
		return fmt.Errorf("invalid email address: %s", address)
	}

	r, err := openReports(cmd, opts)
	if err != nil {
		return err
	}
	if err := r.Email(cmd.Context(), address); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Report sent to %s\n", strings.TrimSpace(address))
	return err
}

// previewStyle picks the glamour style: the flag, else notty when output is
// not a terminal, else the theme preference.
func previewStyle(flag string, out io.Writer, store prefs.Store) string {
	if flag != "" {
		return flag
	}
	if !isTerminal(out) {
		return "notty"
	}
	if prefs.Value(store, prefs.KeyTheme, prefs.DefaultTheme) == "light" {
		return "light"
	}
	return "dark"
}

func runReportPreview(cmd *cobra.Command, opts *apiOptions, style string) error {
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

	md := reportMarkdown(s.deps.Currency, summary, d.Benchmarks())
	if opts.jsonMode {
		return opts.formatter(cmd.OutOrStdout()).Print(map[string]string{"markdown": md})
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(previewStyle(style, cmd.OutOrStdout(), s.deps.Prefs)),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return err
}

// reportMarkdown lays out a dashboard summary as a markdown document.
func reportMarkdown(conv *currency.Converter, s *finbuddy.DashboardSummary, bms []finbuddy.Benchmark) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.PortfolioName)

	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total Value | %s |\n", conv.Format(s.TotalValue))
	fmt.Fprintf(&b, "| Total Investment | %s |\n", conv.Format(s.TotalInvestment))
	fmt.Fprintf(&b, "| Total Gain/Loss | %s (%s) |\n", conv.Format(s.TotalGainLoss), currency.FormatPercentage(s.GainLossPercentage))
	fmt.Fprintf(&b, "| Assets | %d |\n", s.AssetCount)
	fmt.Fprintf(&b, "| Wishlist | %d |\n", s.WishlistCount)

	if len(s.AssetAllocation) > 0 {
		b.WriteString("\n## Asset Allocation\n\n| Type | Value | Share |\n|---|---|---|\n")
		for _, a := range s.AssetAllocation {
			fmt.Fprintf(&b, "| %s | %s | %s%% |\n", a.AssetType, conv.Format(a.TotalValue), a.Percentage.StringFixed(1))
		}
	}

	if len(s.TopPerformers) > 0 {
		b.WriteString("\n## Top Performers\n\n| Symbol | Name | Value | G/L % |\n|---|---|---|---|\n")
		for _, p := range s.TopPerformers {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.Symbol, p.Name, conv.Format(p.CurrentValue), currency.FormatPercentage(p.GainLossPercentage))
		}
	}

	if len(bms) > 0 {
		b.WriteString("\n## Benchmarks\n\n| Index | Value | Change |\n|---|---|---|\n")
		for _, bm := range bms {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", bm.Name, bm.CurrentValue.StringFixed(2), currency.FormatPercentage(bm.ChangePercentage))
		}
	}
	return b.String()
}

func init() {
	var opts apiOptions
	cmd := newReportCmd(&opts)
	cmd.PersistentPreRunE = preRun(&opts)
	rootCmd.AddCommand(cmd)
}
