package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/finbuddy/fin/internal/chart"
	"github.com/finbuddy/fin/internal/config"
	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/internal/logging"
	"github.com/finbuddy/fin/internal/output"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// errNoPortfolio is returned when neither --portfolio nor a saved or
// existing portfolio is available.
var errNoPortfolio = fmt.Errorf("%w: create one with 'fin portfolio create NAME'", controller.ErrNoPortfolio)

// apiOptions holds the dependencies shared by commands that talk to the
// backend. Tests fill it directly; loadAPIOptions fills it from config.
type apiOptions struct {
	baseURL     string
	timeout     time.Duration
	rateLimit   float64
	jsonMode    bool
	jsonPath    string
	portfolioID int64
	assumeYes   bool

	marketRefresh   time.Duration
	wishlistRefresh time.Duration

	prefs     prefs.Store
	notifier  controller.Notifier
	confirmer controller.Confirmer
	log       zerolog.Logger
}

// loadAPIOptions reads config, opens the preference file and wires the
// terminal notifier and confirmer.
func loadAPIOptions(cmd *cobra.Command, opts *apiOptions) error {
	cfg, err := config.LoadWithEnv(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}

	store, err := prefs.OpenFileStore(config.PrefsPath())
	if err != nil {
		return err
	}

	toaster := output.NewToaster(cmd.ErrOrStderr())
	toaster.Quiet = GetJSONMode()

	opts.baseURL = cfg.APIBaseURL
	opts.timeout = cfg.RequestTimeout()
	opts.rateLimit = cfg.RequestsPerSecond
	opts.marketRefresh = cfg.MarketRefresh()
	opts.wishlistRefresh = cfg.WishlistRefresh()
	opts.jsonMode = GetJSONMode()
	opts.jsonPath = jsonPath
	opts.portfolioID = portfolioFlag
	opts.prefs = prefs.NewEnvStore(store)
	opts.notifier = toaster
	opts.confirmer = newPromptConfirmer(newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()))
	opts.log = log
	return nil
}

// preRun returns a PersistentPreRunE that fills opts from config.
func preRun(opts *apiOptions) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return loadAPIOptions(cmd, opts)
	}
}

func (o *apiOptions) client() *finbuddy.Client {
	clientOpts := []finbuddy.Option{finbuddy.WithLogger(o.log)}
	if o.timeout > 0 {
		clientOpts = append(clientOpts, finbuddy.WithTimeout(o.timeout))
	}
	if o.rateLimit > 0 {
		clientOpts = append(clientOpts, finbuddy.WithRateLimit(o.rateLimit, 1))
	}
	return finbuddy.NewClient(o.baseURL, clientOpts...)
}

func (o *apiOptions) formatter(w io.Writer) *output.Formatter {
	return output.New(w, o.jsonMode).WithJSONPath(o.jsonPath)
}

// session is the set of controllers one invocation works with. They share
// a bus and the stores, and load synchronously.
type session struct {
	client *finbuddy.Client
	deps   controller.Deps
	nav    *controller.Navbar
}

func (o *apiOptions) connect() *session {
	client := o.client()

	store := o.prefs
	if store == nil {
		store = prefs.NewMemoryStore()
	}
	var notifier controller.Notifier = controller.NotifierFunc(func(string, string) {})
	if o.notifier != nil {
		notifier = o.notifier
	}
	var confirmer controller.Confirmer = controller.ConfirmFunc(func(string) bool { return false })
	if o.confirmer != nil {
		confirmer = o.confirmer
	}
	if o.assumeYes {
		confirmer = controller.ConfirmFunc(func(string) bool { return true })
	}

	deps := controller.Deps{
		Bus:       events.NewBus(o.log),
		Prefs:     store,
		Session:   prefs.NewMemoryStore(),
		Currency:  currency.NewConverter(client, o.log),
		Charts:    chart.NewRegistry(),
		Notifier:  notifier,
		Confirmer: confirmer,
		Logger:    o.log,
		Async:     func(fn func()) { fn() },
		Timeout:   o.timeout,
	}
	return &session{
		client: client,
		deps:   deps,
		nav:    controller.NewNavbar(client, deps),
	}
}

// portfolio restores the display currency and the portfolio list, and
// returns the portfolio this invocation works on: override when set, else
// the active one.
func (s *session) portfolio(ctx context.Context, override int64) (int64, error) {
	if err := s.nav.Init(ctx); err != nil {
		return 0, err
	}
	id := override
	if id == 0 {
		id = s.nav.PortfolioID()
	}
	if id == 0 {
		return 0, errNoPortfolio
	}
	return id, nil
}

// useCurrency restores the preferred display currency and its rate, for
// commands that do not go through the navbar.
func (s *session) useCurrency(ctx context.Context) {
	code := prefs.Currency(s.deps.Prefs)
	if !slices.Contains(currency.Supported, code) {
		code = currency.Base
	}
	s.deps.Currency.SetDisplay(code)
	s.deps.Currency.EnsureRate(ctx, code)
}

// cancelled turns a declined confirmation into a message instead of an error.
func cancelled(cmd *cobra.Command, err error) error {
	if errors.Is(err, controller.ErrCancelled) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
		return nil
	}
	return err
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, s)
	}
	return id, nil
}

// prompter abstracts interactive menu selection for testing.
type prompter interface {
	SelectOption(options []string) (int, error)
	ReadLine(prompt string) (string, error)
}

// terminalPrompter implements prompter using stdin.
type terminalPrompter struct {
	scanner *bufio.Scanner
	writer  io.Writer
}

func newTerminalPrompter(r io.Reader, w io.Writer) *terminalPrompter {
	return &terminalPrompter{scanner: bufio.NewScanner(r), writer: w}
}

func (p *terminalPrompter) SelectOption(options []string) (int, error) {
	for {
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("no input")
		}
		input := strings.TrimSpace(p.scanner.Text())
		idx, err := strconv.Atoi(input)
		if err != nil || idx < 1 || idx > len(options) {
			_, _ = fmt.Fprintf(p.writer, "Please enter a number between 1 and %d: ", len(options))
			continue
		}
		return idx - 1, nil // Convert to 0-indexed
	}
}

func (p *terminalPrompter) ReadLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.writer, prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// promptConfirmer asks a y/N question through a prompter. Anything but an
// explicit yes declines.
type promptConfirmer struct {
	prompt prompter
}

func newPromptConfirmer(p prompter) *promptConfirmer {
	return &promptConfirmer{prompt: p}
}

func (c *promptConfirmer) Confirm(question string) bool {
	answer, err := c.prompt.ReadLine(question + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}
