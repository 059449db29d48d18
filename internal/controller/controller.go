// Package controller holds the page controllers: one per screen of the app,
// each owning its own view state and reacting to events on the bus.
//
// Controllers never touch the terminal. They call OnRender hooks after every
// state change and report failures through a Notifier, so the same
// controller drives both the TUI and the one-shot CLI commands.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/finbuddy/fin/internal/chart"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

var (
	// ErrNoPortfolio is returned by operations that need an active portfolio.
	ErrNoPortfolio = errors.New("no portfolio selected")
	// ErrValidation wraps client-side input validation failures.
	ErrValidation = errors.New("invalid input")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")
)

// validationError carries a message fit for the user and matches
// ErrValidation.
type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// State is the lifecycle of a page's data.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "uninitialized"
	}
}

// Toast levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notifier shows a non-blocking message to the user.
type Notifier interface {
	Notify(level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level, message string)

// Notify calls f.
func (f NotifierFunc) Notify(level, message string) { f(level, message) }

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Deps are the collaborators shared by every controller.
type Deps struct {
	Bus       *events.Bus
	Prefs     prefs.Store
	Session   prefs.Store
	Currency  *currency.Converter
	Charts    *chart.Registry
	Notifier  Notifier
	Confirmer Confirmer
	Logger    zerolog.Logger

	// Async runs event-triggered loads. Defaults to a new goroutine; tests
	// run them inline.
	Async func(func())
	// Timeout bounds loads started from events. Defaults to 30s.
	Timeout time.Duration
	// Debounce is the search box delay. Defaults to 300ms.
	Debounce time.Duration
}

type noRates struct{}

func (noRates) GetExchangeRate(context.Context, string, string) (*finbuddy.ExchangeRate, error) {
	return nil, errors.New("exchange rates unavailable")
}

func (d Deps) withDefaults() Deps {
	if d.Bus == nil {
		d.Bus = events.NewBus(d.Logger)
	}
	if d.Prefs == nil {
		d.Prefs = prefs.NewMemoryStore()
	}
	if d.Session == nil {
		d.Session = prefs.NewMemoryStore()
	}
	if d.Currency == nil {
		d.Currency = currency.NewConverter(noRates{}, d.Logger)
	}
	if d.Charts == nil {
		d.Charts = chart.NewRegistry()
	}
	if d.Notifier == nil {
		d.Notifier = NotifierFunc(func(string, string) {})
	}
	if d.Confirmer == nil {
		d.Confirmer = ConfirmFunc(func(string) bool { return false })
	}
	if d.Async == nil {
		d.Async = func(fn func()) { go fn() }
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	if d.Debounce <= 0 {
		d.Debounce = 300 * time.Millisecond
	}
	return d
}

// background runs fn asynchronously with a timeout-bound context.
func (d Deps) background(fn func(ctx context.Context)) {
	d.Async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		defer cancel()
		fn(ctx)
	})
}

// ticket identifies one load. A result is applied only if its ticket is
// still the latest one issued by the page.
type ticket struct {
	gen         uint64
	portfolioID int64
}

// page is the state machine shared by all controllers.
type page struct {
	name string
	deps Deps
	log  zerolog.Logger

	mu          sync.Mutex
	state       State
	err         error
	gen         uint64
	portfolioID int64
	onRender    []func()
	load        func(ctx context.Context) error
}

func (p *page) init(name string, deps Deps) {
	p.name = name
	p.deps = deps.withDefaults()
	p.log = p.deps.Logger.With().Str("page", name).Logger()
}

// OnRender registers fn to run after every state change.
func (p *page) OnRender(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRender = append(p.onRender, fn)
}

// State returns the current lifecycle state.
func (p *page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error of the last failed load.
func (p *page) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// PortfolioID returns the portfolio the page is showing.
func (p *page) PortfolioID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.portfolioID
}

func (p *page) setPortfolio(id int64) {
	p.mu.Lock()
	p.portfolioID = id
	p.mu.Unlock()
}

func (p *page) render() {
	p.mu.Lock()
	hooks := append([]func(){}, p.onRender...)
	p.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// begin issues a new ticket and enters the loading state.
func (p *page) begin() ticket {
	t := p.beginSilent()
	p.mu.Lock()
	p.state = StateLoading
	p.mu.Unlock()
	p.render()
	return t
}

// beginSilent issues a ticket without showing a loading state, for
// background refreshes.
func (p *page) beginSilent() ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	return ticket{gen: p.gen, portfolioID: p.portfolioID}
}

// finish applies a result under the page lock if t is still current.
func (p *page) finish(t ticket, apply func()) bool {
	p.mu.Lock()
	if t.gen != p.gen {
		p.mu.Unlock()
		p.log.Debug().Uint64("gen", t.gen).Int64("portfolio", t.portfolioID).Msg("discarding stale response")
		return false
	}
	if apply != nil {
		apply()
	}
	p.state = StateReady
	p.err = nil
	p.mu.Unlock()

	p.render()
	return true
}

// fail records a failed load if t is still current. The last good data is
// kept. toast, when non-empty, is shown to the user.
func (p *page) fail(t ticket, err error, toast string) {
	p.mu.Lock()
	if t.gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.state = StateError
	p.err = err
	p.mu.Unlock()

	p.log.Error().Err(err).Int64("portfolio", t.portfolioID).Msg(p.name + " load failed")
	if toast != "" {
		p.notify(LevelError, toast)
	}
	p.render()
}

// idle resets to ready without data, used when no portfolio is selected.
func (p *page) idle(t ticket, clear func()) {
	p.finish(t, clear)
}

func (p *page) notify(level, msg string) {
	p.deps.Notifier.Notify(level, msg)
}

// report logs and toasts a failed user action.
func (p *page) report(err error, toast string) error {
	p.log.Error().Err(err).Msg(toast)
	msg := toast
	if errors.Is(err, ErrValidation) {
		msg = err.Error()
	}
	p.notify(LevelError, msg)
	return err
}

func (p *page) confirm(prompt string) bool {
	return p.deps.Confirmer.Confirm(prompt)
}

// Open loads the page for portfolio id without going through the bus. The
// CLI uses it to show a single portfolio.
func (p *page) Open(ctx context.Context, id int64) error {
	p.setPortfolio(id)
	if p.load == nil {
		return nil
	}
	return p.load(ctx)
}

// follow subscribes the page to portfolio changes. load runs for the new
// portfolio on the async runner.
func (p *page) follow(load func(ctx context.Context) error) {
	p.load = load
	events.Subscribe(p.deps.Bus, func(e events.PortfolioChanged) {
		p.setPortfolio(e.PortfolioID)
		p.deps.background(func(ctx context.Context) { _ = load(ctx) })
	})
}
