package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/finbuddy/fin/internal/config"
	"github.com/finbuddy/fin/internal/logging"
	"github.com/finbuddy/fin/internal/output"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// configureOptions holds dependencies for the configure command.
// This allows for dependency injection in tests.
type configureOptions struct {
	configPath string
	prompt     prompter
	isTerminal func() bool
	// ping checks that a backend answers at baseURL.
	ping func(ctx context.Context, baseURL string) error
}

// pingBackend lists portfolios to prove the backend is reachable.
func pingBackend(ctx context.Context, baseURL string) error {
	client := finbuddy.NewClient(baseURL, finbuddy.WithTimeout(10*time.Second))
	_, err := client.ListPortfolios(ctx)
	return err
}

// newConfigureCmd creates the configure command with the given options.
func newConfigureCmd(opts configureOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure the CLI",
		Long: `Configure where the CLI finds the FinBuddy backend and how often the
live views refresh.

Run without arguments for an interactive setup, or change single values:

Examples:
  fin configure
  fin configure show
  fin configure set api_base_url http://localhost:8080/api
  fin configure set market_refresh_seconds 15`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, opts)
		},
	}

	// Don't show usage info on validation errors - just show the error
	cmd.SilenceUsage = true

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the current configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runViewConfiguration(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change one configuration value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigureSet(cmd, opts, args[0], args[1])
			},
		},
	)

	return cmd
}

// reconfigureMenuOptions defines the menu options when already configured.
var reconfigureMenuOptions = []string{
	"Change backend URL",
	"Change refresh intervals",
	"View current configuration",
	"Reset to defaults",
}

func runConfigure(cmd *cobra.Command, opts configureOptions) error {
	// Verify we're running in an interactive terminal
	if !opts.isTerminal() {
		return fmt.Errorf("configure requires an interactive terminal\nUse 'fin configure set KEY VALUE' in scripts")
	}

	// Check if already configured
	_, err := os.Stat(opts.configPath)
	alreadyConfigured := err == nil

	if alreadyConfigured {
		return runReconfigureMenu(cmd, opts)
	}

	return runInitialSetup(cmd, opts)
}

// runReconfigureMenu shows the reconfigure menu when already configured.
func runReconfigureMenu(cmd *cobra.Command, opts configureOptions) error {
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "CLI is already configured. What would you like to do?")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for i, opt := range reconfigureMenuOptions {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s\n", i+1, opt)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	_, _ = fmt.Fprint(cmd.OutOrStdout(), "Select option: ")

	choice, err := opts.prompt.SelectOption(reconfigureMenuOptions)
	if err != nil {
		return fmt.Errorf("failed to read selection: %w", err)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	switch choice {
	case 0: // Change backend URL
		if err := promptBaseURL(cmd, opts, cfg); err != nil {
			return err
		}
	case 1: // Change refresh intervals
		if err := promptIntervals(opts, cfg); err != nil {
			return err
		}
	case 2: // View current configuration
		return runViewConfiguration(cmd, opts)
	case 3: // Reset to defaults
		cfg = config.DefaultConfig()
	default:
		return fmt.Errorf("invalid selection")
	}

	return saveConfig(cmd, opts.configPath, cfg)
}

// runInitialSetup walks through every setting.
func runInitialSetup(cmd *cobra.Command, opts configureOptions) error {
	cfg := config.DefaultConfig()

	if err := promptBaseURL(cmd, opts, cfg); err != nil {
		return err
	}
	if err := promptIntervals(opts, cfg); err != nil {
		return err
	}

	level, err := opts.prompt.ReadLine(fmt.Sprintf("Log level [%s]: ", cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("failed to read log level: %w", err)
	}
	if level != "" {
		if _, err := logging.ParseLevel(level); err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	return saveConfig(cmd, opts.configPath, cfg)
}

// promptBaseURL asks for the backend URL and checks that it answers. An
// unreachable backend is reported but still saved.
func promptBaseURL(cmd *cobra.Command, opts configureOptions, cfg *config.Config) error {
	url, err := opts.prompt.ReadLine(fmt.Sprintf("Backend URL [%s]: ", cfg.APIBaseURL))
	if err != nil {
		return fmt.Errorf("failed to read backend URL: %w", err)
	}
	if url != "" {
		if err := cfg.Set("api_base_url", url); err != nil {
			return err
		}
	}

	if opts.ping == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	if err := opts.ping(ctx, cfg.APIBaseURL); err != nil {
		// Non-fatal: the backend may simply not be running yet
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Note: could not reach %s: %v\n", cfg.APIBaseURL, err)
	} else {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Backend is reachable.")
	}
	return nil
}

// promptIntervals asks for the market and wishlist refresh periods.
func promptIntervals(opts configureOptions, cfg *config.Config) error {
	for _, q := range []struct {
		key     string
		label   string
		current int
	}{
		{"market_refresh_seconds", "Market refresh (seconds)", cfg.MarketRefreshSeconds},
		{"wishlist_refresh_seconds", "Wishlist refresh (seconds)", cfg.WishlistRefreshSeconds},
	} {
		answer, err := opts.prompt.ReadLine(fmt.Sprintf("%s [%d]: ", q.label, q.current))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", q.key, err)
		}
		if answer == "" {
			continue
		}
		if err := cfg.Set(q.key, answer); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return cfg, nil
}

func saveConfig(cmd *cobra.Command, path string, cfg *config.Config) error {
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration saved successfully!")
	return nil
}

// runConfigureSet changes one value without prompting.
func runConfigureSet(cmd *cobra.Command, opts configureOptions, key, value string) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if key == "log_level" {
		if _, err := logging.ParseLevel(value); err != nil {
			return err
		}
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	return saveConfig(cmd, opts.configPath, cfg)
}

// runViewConfiguration displays the current configuration.
func runViewConfiguration(cmd *cobra.Command, opts configureOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	f := output.New(cmd.OutOrStdout(), GetJSONMode()).WithJSONPath(jsonPath)
	if GetJSONMode() {
		return f.Print(cfg)
	}

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = config.DefaultLogPath() + " (ui only)"
	}
	return f.Details([]output.Field{
		{Label: "Config file", Value: opts.configPath},
		{Label: "Backend URL", Value: cfg.APIBaseURL},
		{Label: "Request timeout", Value: cfg.RequestTimeout().String()},
		{Label: "Requests per second", Value: strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)},
		{Label: "Market refresh", Value: cfg.MarketRefresh().String()},
		{Label: "Wishlist refresh", Value: cfg.WishlistRefresh().String()},
		{Label: "Search debounce", Value: cfg.SearchDebounce().String()},
		{Label: "Log level", Value: cfg.LogLevel},
		{Label: "Log file", Value: logFile},
	})
}

func init() {
	// Create configure command with production dependencies
	configureCmd := newConfigureCmd(configureOptions{
		configPath: config.ConfigPath(),
		prompt:     newTerminalPrompter(os.Stdin, os.Stdout),
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		ping:       pingBackend,
	})
	rootCmd.AddCommand(configureCmd)
}
