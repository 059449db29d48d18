package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/internal/schedule"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// MinSearchLength is the shortest query sent to the search endpoints.
const MinSearchLength = 2

// NavbarAPI is the part of the gateway the navbar needs.
type NavbarAPI interface {
	ListPortfolios(ctx context.Context) ([]finbuddy.Portfolio, error)
	RecalculatePortfolio(ctx context.Context, id int64) error
	Search(ctx context.Context, kind finbuddy.SearchKind, query, assetType string) ([]finbuddy.SearchResult, error)
}

// Navbar owns the active portfolio and the display currency. It is the only
// publisher of portfolioChanged and currencyChanged.
type Navbar struct {
	page
	api NavbarAPI

	portfolios []finbuddy.Portfolio
	query      string
	results    []finbuddy.SearchResult

	search *schedule.Debouncer[string]
}

// NewNavbar creates the navbar controller.
func NewNavbar(api NavbarAPI, deps Deps) *Navbar {
	n := &Navbar{api: api}
	n.init("navbar", deps)
	n.search = schedule.NewDebouncer(n.deps.Debounce, func(q string) {
		n.deps.background(func(ctx context.Context) { _ = n.SearchNow(ctx, q) })
	})
	events.Subscribe(n.deps.Bus, func(events.CurrencyChanged) {
		if q := n.Query(); len(q) >= MinSearchLength {
			n.search.Call(q)
		}
	})
	return n
}

// Init restores the display currency, loads the portfolio list and selects
// the saved portfolio, or the first one when the saved id is gone.
func (n *Navbar) Init(ctx context.Context) error {
	code := prefs.Currency(n.deps.Prefs)
	if !supported(code) {
		code = currency.Base
	}
	n.deps.Currency.SetDisplay(code)
	n.deps.Currency.EnsureRate(ctx, code)

	t := n.begin()
	list, err := n.api.ListPortfolios(ctx)
	if err != nil {
		n.fail(t, err, "Failed to load portfolios")
		return fmt.Errorf("failed to load portfolios: %w", err)
	}

	saved, _ := prefs.ID(n.deps.Prefs, prefs.KeyActivePortfolio)
	active := int64(0)
	if contains(list, saved) {
		active = saved
	} else if len(list) > 0 {
		active = list[0].ID
	}

	if !n.finish(t, func() {
		n.portfolios = list
		n.portfolioID = active
	}) {
		return nil
	}
	if active == 0 {
		return nil
	}
	return n.activate(active)
}

// Portfolios returns the loaded portfolio list.
func (n *Navbar) Portfolios() []finbuddy.Portfolio {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]finbuddy.Portfolio(nil), n.portfolios...)
}

// Active returns the active portfolio, or nil when there is none.
func (n *Navbar) Active() *finbuddy.Portfolio {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.portfolios {
		if n.portfolios[i].ID == n.portfolioID {
			p := n.portfolios[i]
			return &p
		}
	}
	return nil
}

// Select makes id the active portfolio and tells every page.
func (n *Navbar) Select(id int64) error {
	n.mu.Lock()
	known := contains(n.portfolios, id)
	n.mu.Unlock()
	if !known {
		return fmt.Errorf("portfolio %d not found", id)
	}

	n.setPortfolio(id)
	n.render()
	return n.activate(id)
}

// Next selects the portfolio after the active one, wrapping around.
func (n *Navbar) Next() error {
	n.mu.Lock()
	if len(n.portfolios) == 0 {
		n.mu.Unlock()
		return ErrNoPortfolio
	}
	next := n.portfolios[0].ID
	for i, p := range n.portfolios {
		if p.ID == n.portfolioID {
			next = n.portfolios[(i+1)%len(n.portfolios)].ID
			break
		}
	}
	n.mu.Unlock()
	return n.Select(next)
}

func (n *Navbar) activate(id int64) error {
	if err := prefs.SetID(n.deps.Prefs, prefs.KeyActivePortfolio, id); err != nil {
		n.log.Warn().Err(err).Msg("failed to persist active portfolio")
	}
	n.deps.Bus.Publish(events.PortfolioChanged{PortfolioID: id})
	return nil
}

// Currency returns the display currency.
func (n *Navbar) Currency() string {
	return n.deps.Currency.Display()
}

// SetCurrency switches the display currency, fetching its rate before the
// pages re-render.
func (n *Navbar) SetCurrency(ctx context.Context, code string) error {
	code = currency.Normalize(code)
	if !supported(code) {
		return n.report(invalid("unsupported currency %q", code), "Unsupported currency")
	}

	if err := n.deps.Prefs.Set(prefs.KeyPreferredCurrency, code); err != nil {
		n.log.Warn().Err(err).Msg("failed to persist currency")
	}
	n.deps.Currency.SetDisplay(code)
	n.deps.Currency.EnsureRate(ctx, code)
	n.render()

	n.deps.Bus.Publish(events.CurrencyChanged{Currency: code})
	if id := n.PortfolioID(); id != 0 {
		n.deps.Bus.Publish(events.PortfolioChanged{PortfolioID: id})
	}
	return nil
}

// NextCurrency cycles through the supported currencies.
func (n *Navbar) NextCurrency(ctx context.Context) error {
	cur := n.Currency()
	next := currency.Supported[0]
	for i, c := range currency.Supported {
		if c == cur {
			next = currency.Supported[(i+1)%len(currency.Supported)]
			break
		}
	}
	return n.SetCurrency(ctx, next)
}

// Refresh asks the backend to recalculate the active portfolio, then makes
// every page reload it.
func (n *Navbar) Refresh(ctx context.Context) error {
	id := n.PortfolioID()
	if id == 0 {
		n.notify(LevelWarning, "Please select a portfolio first")
		return ErrNoPortfolio
	}

	if err := n.api.RecalculatePortfolio(ctx, id); err != nil {
		return n.report(err, "Failed to refresh portfolio")
	}
	if err := n.ReloadPortfolios(ctx, 0); err != nil {
		return err
	}
	n.notify(LevelSuccess, "Portfolio refreshed")
	return nil
}

// ReloadPortfolios re-reads the list. selectID, when non-zero and present,
// becomes active; otherwise the current portfolio is kept if it still exists,
// else the newest portfolio is selected.
func (n *Navbar) ReloadPortfolios(ctx context.Context, selectID int64) error {
	t := n.begin()
	list, err := n.api.ListPortfolios(ctx)
	if err != nil {
		n.fail(t, err, "Failed to load portfolios")
		return fmt.Errorf("failed to load portfolios: %w", err)
	}

	current := n.PortfolioID()
	active := int64(0)
	switch {
	case selectID != 0 && contains(list, selectID):
		active = selectID
	case contains(list, current):
		active = current
	case len(list) > 0:
		active = list[len(list)-1].ID
	}

	if !n.finish(t, func() {
		n.portfolios = list
		n.portfolioID = active
	}) {
		return nil
	}
	if active == 0 {
		if err := n.deps.Prefs.Delete(prefs.KeyActivePortfolio); err != nil && !errors.Is(err, prefs.ErrNotFound) {
			n.log.Warn().Err(err).Msg("failed to clear active portfolio")
		}
		return nil
	}
	return n.activate(active)
}

// Search schedules a global symbol search on the trailing edge of typing.
// Queries shorter than MinSearchLength clear the results.
func (n *Navbar) Search(query string) {
	query = strings.TrimSpace(query)
	n.mu.Lock()
	n.query = query
	if len(query) < MinSearchLength {
		n.results = nil
	}
	n.mu.Unlock()

	if len(query) < MinSearchLength {
		n.search.Stop()
		n.render()
		return
	}
	n.search.Call(query)
}

// SearchNow runs a search immediately. Results for a query that is no longer
// the latest one are dropped.
func (n *Navbar) SearchNow(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchLength {
		return nil
	}
	n.mu.Lock()
	if n.query == "" {
		n.query = query
	}
	n.mu.Unlock()

	results, err := n.api.Search(ctx, finbuddy.SearchAll, query, "")
	if err != nil {
		n.log.Warn().Err(err).Str("query", query).Msg("search failed")
		return err
	}

	n.mu.Lock()
	if n.query != query {
		n.mu.Unlock()
		return nil
	}
	n.results = results
	n.mu.Unlock()
	n.render()
	return nil
}

// Query returns the latest search query.
func (n *Navbar) Query() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.query
}

// Results returns the latest search results.
func (n *Navbar) Results() []finbuddy.SearchResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]finbuddy.SearchResult(nil), n.results...)
}

// SelectStock closes the search results, drops a pending search and
// announces the symbol.
func (n *Navbar) SelectStock(symbol string) {
	n.search.Stop()
	n.mu.Lock()
	n.query = ""
	n.results = nil
	n.mu.Unlock()
	n.render()

	n.deps.Bus.Publish(events.StockSelected{Symbol: strings.ToUpper(symbol)})
}

// Close stops the pending search.
func (n *Navbar) Close() {
	n.search.Stop()
}

func contains(list []finbuddy.Portfolio, id int64) bool {
	if id == 0 {
		return false
	}
	for _, p := range list {
		if p.ID == id {
			return true
		}
	}
	return false
}

func supported(code string) bool {
	for _, c := range currency.Supported {
		if c == code {
			return currency.Valid(code)
		}
	}
	return false
}
