package controller

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// published records every event delivered on bus, in order.
func published(bus *events.Bus) *[]string {
	var got []string
	events.Subscribe(bus, func(e events.PortfolioChanged) { got = append(got, e.String()) })
	events.Subscribe(bus, func(e events.CurrencyChanged) { got = append(got, e.String()) })
	events.Subscribe(bus, func(e events.StockSelected) { got = append(got, e.String()) })
	return &got
}

func TestNavbar_Init_RestoresSavedPortfolio(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100").withPortfolio(2, "Income", "50")
	h := newHarness(api)
	h.prefs.WithData(prefs.KeyActivePortfolio, "2")
	got := published(h.deps.Bus)

	n := NewNavbar(api, h.deps)
	require.NoError(t, n.Init(context.Background()))

	assert.Equal(t, int64(2), n.PortfolioID())
	assert.Equal(t, "Income", n.Active().Name)
	assert.Equal(t, []string{"portfolioChanged(2)"}, *got)
	assert.Equal(t, StateReady, n.State())
}

func TestNavbar_Init_FallsBackToFirst(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100").withPortfolio(2, "Income", "50")
	h := newHarness(api)
	h.prefs.WithData(prefs.KeyActivePortfolio, "42")

	n := NewNavbar(api, h.deps)
	require.NoError(t, n.Init(context.Background()))

	assert.Equal(t, int64(1), n.PortfolioID())
	saved, ok := prefs.ID(h.prefs, prefs.KeyActivePortfolio)
	require.True(t, ok)
	assert.Equal(t, int64(1), saved)
}

func TestNavbar_Init_NoPortfolios(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(api)
	got := published(h.deps.Bus)

	n := NewNavbar(api, h.deps)
	require.NoError(t, n.Init(context.Background()))

	assert.Zero(t, n.PortfolioID())
	assert.Nil(t, n.Active())
	assert.Empty(t, *got)
}

func TestNavbar_Init_Failure(t *testing.T) {
	api := newFakeAPI()
	api.fail("ListPortfolios", errBackend)
	h := newHarness(api)

	n := NewNavbar(api, h.deps)
	err := n.Init(context.Background())

	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateError, n.State())
	assert.Equal(t, []string{"error: Failed to load portfolios"}, h.toasts.all())
}

func TestNavbar_Select(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100").withPortfolio(2, "Income", "50")
	h := newHarness(api)
	n := NewNavbar(api, h.deps)
	require.NoError(t, n.Init(context.Background()))
	got := published(h.deps.Bus)

	require.NoError(t, n.Select(2))
	assert.Equal(t, []string{"portfolioChanged(2)"}, *got)
	assert.Equal(t, "2", prefs.Value(h.prefs, prefs.KeyActivePortfolio, ""))

	assert.Error(t, n.Select(9))
	assert.Equal(t, int64(2), n.PortfolioID())

	require.NoError(t, n.Next())
	assert.Equal(t, int64(1), n.PortfolioID())
}

func TestNavbar_SetCurrency(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100")
	api.rates["INR"] = decimal.NewFromInt(83)
	h := newHarness(api)
	n := NewNavbar(api, h.deps)
	require.NoError(t, n.Init(context.Background()))
	got := published(h.deps.Bus)

	require.NoError(t, n.SetCurrency(context.Background(), "inr"))

	assert.Equal(t, []string{"currencyChanged(INR)", "portfolioChanged(1)"}, *got)
	assert.Equal(t, "INR", n.Currency())
	assert.Equal(t, "INR", prefs.Currency(h.prefs))
	assert.Equal(t, "₹8,300.00", h.deps.Currency.Format(decimal.NewFromInt(100)))

	require.NoError(t, n.SetCurrency(context.Background(), "INR"))
	assert.Equal(t, 1, api.called("GetExchangeRate"))
}

func TestNavbar_SetCurrency_Unsupported(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(api)
	n := NewNavbar(api, h.deps)
	got := published(h.deps.Bus)

	err := n.SetCurrency(context.Background(), "JPY")

	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, *got)
	assert.Equal(t, "USD", n.Currency())
}

func TestNavbar_SetCurrency_RateFailureUsesIdentity(t *testing.T) {
	api := newFakeAPI()
	api.fail("GetExchangeRate", errBackend)
	h := newHarness(api)
	n := NewNavbar(api, h.deps)

	require.NoError(t, n.SetCurrency(context.Background(), "EUR"))

	assert.True(t, h.deps.Currency.Rate().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "€100.00", h.deps.Currency.Format(decimal.NewFromInt(100)))
}

func TestNavbar_Init_RestoresCurrency(t *testing.T) {
	api := newFakeAPI()
	api.rates["GBP"] = decimal.RequireFromString("0.8")
	h := newHarness(api)
	h.prefs.WithData(prefs.KeyPreferredCurrency, "GBP")

	n := NewNavbar(api, h.deps)
	require.NoError(t, n.Init(context.Background()))

	assert.Equal(t, "GBP", n.Currency())
	assert.Equal(t, "£80.00", h.deps.Currency.Format(decimal.NewFromInt(100)))
}

func TestNavbar_Refresh(t *testing.T) {
	t.Run("requires a portfolio", func(t *testing.T) {
		api := newFakeAPI()
		h := newHarness(api)
		n := NewNavbar(api, h.deps)

		err := n.Refresh(context.Background())

		require.ErrorIs(t, err, ErrNoPortfolio)
		assert.Equal(t, []string{"warning: Please select a portfolio first"}, h.toasts.all())
		assert.Zero(t, api.called("RecalculatePortfolio"))
	})

	t.Run("recalculates and republishes", func(t *testing.T) {
		api := newFakeAPI().withPortfolio(1, "Growth", "100")
		h := newHarness(api)
		n := NewNavbar(api, h.deps)
		require.NoError(t, n.Init(context.Background()))
		got := published(h.deps.Bus)

		require.NoError(t, n.Refresh(context.Background()))

		assert.Equal(t, 1, api.called("RecalculatePortfolio"))
		assert.Equal(t, []string{"portfolioChanged(1)"}, *got)
		assert.Contains(t, h.toasts.all(), "success: Portfolio refreshed")
	})
}

func TestNavbar_Search_Debounced(t *testing.T) {
	api := newFakeAPI()
	api.results = []finbuddy.SearchResult{{Symbol: "AAPL", Description: "APPLE INC"}}
	h := newHarness(api)
	n := NewNavbar(api, h.deps)
	defer n.Close()

	n.Search("a")
	n.Search("ap")
	n.Search("app")

	require.Eventually(t, func() bool { return len(n.Results()) == 1 }, time.Second, 5*time.Millisecond)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []string{"app"}, api.searches)
}

func TestNavbar_Search_ShortQueryClears(t *testing.T) {
	api := newFakeAPI()
	api.results = []finbuddy.SearchResult{{Symbol: "AAPL"}}
	h := newHarness(api)
	n := NewNavbar(api, h.deps)

	require.NoError(t, n.SearchNow(context.Background(), "apple"))
	require.Len(t, n.Results(), 1)

	n.Search("a")
	assert.Empty(t, n.Results())
}

func TestNavbar_SearchNow_DropsSupersededQuery(t *testing.T) {
	api := newFakeAPI()
	api.results = []finbuddy.SearchResult{{Symbol: "AAPL"}}
	h := newHarness(api)
	n := NewNavbar(api, h.deps)

	n.Search("msft")
	n.Close()
	require.NoError(t, n.SearchNow(context.Background(), "apple"))

	assert.Empty(t, n.Results())
}

func TestNavbar_SelectStock(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(api)
	n := NewNavbar(api, h.deps)
	got := published(h.deps.Bus)

	n.SelectStock("aapl")

	assert.Equal(t, []string{"stockSelected(AAPL)"}, *got)
	assert.Empty(t, n.Query())
}

func TestNavbar_SelectStock_CancelsPendingSearch(t *testing.T) {
	api := newFakeAPI()
	api.results = []finbuddy.SearchResult{{Symbol: "AAPL"}}
	h := newHarness(api)
	n := NewNavbar(api, h.deps)
	defer n.Close()

	n.Search("app")
	n.SelectStock("AAPL")

	assert.Never(t, func() bool { return len(n.Results()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.searches)
}
