package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/output"
	"github.com/finbuddy/fin/internal/prefs"
)

// durablePrefs are the keys `fin prefs` manages, with their defaults.
var durablePrefs = []struct {
	key, def string
}{
	{prefs.KeyActivePortfolio, ""},
	{prefs.KeyPreferredCurrency, prefs.DefaultCurrency},
	{prefs.KeyTheme, prefs.DefaultTheme},
	{prefs.KeySidebarCollapsed, "false"},
}

func prefDefault(key string) (string, bool) {
	for _, p := range durablePrefs {
		if p.key == key {
			return p.def, true
		}
	}
	return "", false
}

// newPrefsCmd creates the prefs command group.
func newPrefsCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"pref", "preferences"},
		Short:   "View and change preferences",
		Long: `Preferences are shared by the CLI and the terminal UI.

Keys:
  activePortfolioId   Portfolio used when --portfolio is not given
  preferredCurrency   Display currency (USD, INR, EUR, GBP)
  theme               dark or light
  sidebarCollapsed    true or false

Examples:
  fin prefs                       # Show all preferences
  fin prefs currency INR          # Display amounts in rupees
  fin prefs set theme light`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrefsList(cmd, opts)
		},
	}
	cmd.SilenceUsage = true

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "Show all preferences",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrefsList(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Show one preference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrefsGet(cmd, opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change a preference",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrefsSet(cmd, opts, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "reset KEY",
			Short: "Restore a preference to its default",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrefsReset(cmd, opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "currency CODE",
			Short: "Switch the display currency",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPrefsCurrency(cmd, opts, args[0])
			},
		},
	)

	return cmd
}

func prefsStore(opts *apiOptions) prefs.Store {
	if opts.prefs == nil {
		opts.prefs = prefs.NewMemoryStore()
	}
	return opts.prefs
}

func runPrefsList(cmd *cobra.Command, opts *apiOptions) error {
	store := prefsStore(opts)
	f := opts.formatter(cmd.OutOrStdout())

	if opts.jsonMode {
		values := make(map[string]string, len(durablePrefs))
		for _, p := range durablePrefs {
			values[p.key] = prefs.Value(store, p.key, p.def)
		}
		return f.Print(values)
	}

	fields := make([]output.Field, 0, len(durablePrefs))
	for _, p := range durablePrefs {
		v := prefs.Value(store, p.key, p.def)
		if v == "" {
			v = "-"
		}
		fields = append(fields, output.Field{Label: p.key, Value: v})
	}
	return f.Details(fields)
}

func runPrefsGet(cmd *cobra.Command, opts *apiOptions, key string) error {
	def, ok := prefDefault(key)
	if !ok {
		return fmt.Errorf("unknown preference: %s", key)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), prefs.Value(prefsStore(opts), key, def))
	return err
}

// validatePref normalizes value for key.
func validatePref(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch key {
	case prefs.KeyActivePortfolio:
		id, err := parseID(value, "portfolio")
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(id, 10), nil
	case prefs.KeyPreferredCurrency:
		code := currency.Normalize(value)
		if !currency.Valid(code) {
			return "", fmt.Errorf("unsupported currency %q (use one of %s)", value, strings.Join(currency.Supported, ", "))
		}
		return code, nil
	case prefs.KeyTheme:
		v := strings.ToLower(value)
		if v != "dark" && v != "light" {
			return "", fmt.Errorf("theme must be dark or light")
		}
		return v, nil
	case prefs.KeySidebarCollapsed:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("sidebarCollapsed must be true or false")
		}
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("unknown preference: %s", key)
}

func runPrefsSet(cmd *cobra.Command, opts *apiOptions, key, value string) error {
	v, err := validatePref(key, value)
	if err != nil {
		return err
	}
	if err := prefsStore(opts).Set(key, v); err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, v)
	return err
}

func runPrefsReset(cmd *cobra.Command, opts *apiOptions, key string) error {
	def, ok := prefDefault(key)
	if !ok {
		return fmt.Errorf("unknown preference: %s", key)
	}
	if err := prefsStore(opts).Delete(key); err != nil {
		return fmt.Errorf("failed to reset preference: %w", err)
	}
	if def == "" {
		def = "-"
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, def)
	return err
}

// runPrefsCurrency switches the display currency through the navbar so the
// exchange rate is fetched and cached along with the preference.
func runPrefsCurrency(cmd *cobra.Command, opts *apiOptions, code string) error {
	s := opts.connect()
	if err := s.nav.SetCurrency(cmd.Context(), code); err != nil {
		return err
	}

	conv := s.deps.Currency
	rate := conv.Rate()
	if opts.jsonMode {
		return opts.formatter(cmd.OutOrStdout()).Print(map[string]string{
			"currency": conv.Display(),
			"rate":     rate.String(),
		})
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Display currency: %s (1 %s = %s %s)\n",
		conv.Display(), currency.Base, rate.String(), conv.Display())
	return err
}

func init() {
	var opts apiOptions
	cmd := newPrefsCmd(&opts)
	cmd.PersistentPreRunE = preRun(&opts)
	rootCmd.AddCommand(cmd)
}
