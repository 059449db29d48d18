package controller

import (
	"context"
	"time"

	"github.com/finbuddy/fin/internal/schedule"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// EmptyMarketMessage is shown when the portfolio holds no priced symbols.
const EmptyMarketMessage = "Add assets to see live prices"

// MarketAPI is the part of the gateway the market page needs.
type MarketAPI interface {
	ListAssets(ctx context.Context, portfolioID int64) ([]finbuddy.Asset, error)
	GetBatchQuotes(ctx context.Context, symbols []string) ([]finbuddy.Quote, error)
}

// Market shows live quotes for every symbol held in the active portfolio.
type Market struct {
	page
	api    MarketAPI
	poller *schedule.Poller

	quotes []finbuddy.Quote
}

// NewMarket creates the market page controller. interval is the live price
// poll period; zero disables polling.
func NewMarket(api MarketAPI, interval time.Duration, deps Deps) *Market {
	m := &Market{api: api}
	m.init("market", deps)
	if interval > 0 {
		m.poller = schedule.NewPoller(interval, func(ctx context.Context) {
			if m.PortfolioID() != 0 {
				_ = m.Load(ctx)
			}
		})
	}
	m.follow(m.Load)
	return m
}

// Load fetches the portfolio's symbols and quotes them in one batch.
func (m *Market) Load(ctx context.Context) error {
	t := m.begin()
	if t.portfolioID == 0 {
		m.idle(t, func() { m.quotes = nil })
		return nil
	}

	assets, err := m.api.ListAssets(ctx, t.portfolioID)
	if err != nil {
		m.fail(t, err, "Failed to load live prices")
		return err
	}
	symbols := symbolsOf(assets)
	if len(symbols) == 0 {
		m.finish(t, func() { m.quotes = nil })
		return nil
	}

	quotes, err := m.api.GetBatchQuotes(ctx, symbols)
	if err != nil {
		m.fail(t, err, "Failed to load live prices")
		return err
	}
	m.finish(t, func() { m.quotes = quotes })
	return nil
}

func symbolsOf(assets []finbuddy.Asset) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range assets {
		if a.Symbol == "" || seen[a.Symbol] {
			continue
		}
		seen[a.Symbol] = true
		out = append(out, a.Symbol)
	}
	return out
}

// Quotes returns the latest quotes.
func (m *Market) Quotes() []finbuddy.Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]finbuddy.Quote(nil), m.quotes...)
}

// Empty reports whether a loaded portfolio has nothing to quote.
func (m *Market) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateReady && len(m.quotes) == 0
}

// Start begins live price polling.
func (m *Market) Start(ctx context.Context) {
	if m.poller != nil {
		m.poller.Start(ctx)
	}
}

// Stop ends live price polling.
func (m *Market) Stop() {
	if m.poller != nil {
		m.poller.Stop()
	}
}
