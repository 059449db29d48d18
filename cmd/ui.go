package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/finbuddy/fin/internal/chart"
	"github.com/finbuddy/fin/internal/config"
	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/internal/logging"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/internal/tui"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// newApp wires every page controller to a client built from cfg. Unlike the
// one-shot commands, loads triggered by the bus run in the background.
func newApp(cfg *config.Config, store prefs.Store, bridge *tui.Bridge, log zerolog.Logger) *controller.App {
	client := finbuddy.NewClient(cfg.APIBaseURL,
		finbuddy.WithLogger(log),
		finbuddy.WithTimeout(cfg.RequestTimeout()),
		finbuddy.WithRateLimit(cfg.RequestsPerSecond, 1),
	)

	deps := controller.Deps{
		Bus:       events.NewBus(log),
		Prefs:     store,
		Session:   prefs.NewMemoryStore(),
		Currency:  currency.NewConverter(client, log),
		Charts:    chart.NewRegistry(),
		Notifier:  bridge,
		Confirmer: bridge,
		Logger:    log,
		Timeout:   cfg.RequestTimeout(),
		Debounce:  cfg.SearchDebounce(),
	}
	return controller.NewApp(client, controller.Intervals{
		Market:   cfg.MarketRefresh(),
		Wishlist: cfg.WishlistRefresh(),
	}, deps)
}

func runUI(cmd *cobra.Command) error {
	// The full screen UI needs a real terminal on both ends
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("ui requires an interactive terminal")
	}

	cfg, err := config.LoadWithEnv(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// stderr is hidden behind the alt screen, so log to a file
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}
	log, closer, err := logging.NewFile(logPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	store, err := prefs.OpenFileStore(config.PrefsPath())
	if err != nil {
		return err
	}

	bridge := tui.NewBridge()
	app := newApp(cfg, prefs.NewEnvStore(store), bridge, log)
	log.Info().Str("api", cfg.APIBaseURL).Msg("starting ui")

	return tui.Run(cmd.Context(), app, bridge, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
}

func init() {
	uiCmd := &cobra.Command{
		Use:   "ui",
		Short: "Interactive terminal UI",
		Long: `Launch an interactive terminal UI for FinBuddy.

The UI keeps every page in sync: switching portfolio or currency reloads
all of them, live prices refresh in the background and wishlist alerts
appear as notifications. Views:
  - Dashboard: totals, allocation and top performers
  - Assets: holdings with search
  - Market: live prices of the holdings
  - Wishlist: watched symbols and price alerts
  - Analytics: performance and risk over a time range

Keyboard shortcuts:
  1-5     Switch between views
  p       Next portfolio
  c       Next display currency
  r       Refresh (wishlist: fetch prices)
  /       Search assets
  s       Sort the wishlist
  t       Next analytics time range
  d       Delete the selected row
  q       Quit the application

Logs are written to the configured log file (default ` + "`~/.config/finbuddy/fin.log`" + `).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd)
		},
	}

	uiCmd.SilenceUsage = true
	rootCmd.AddCommand(uiCmd)
}
