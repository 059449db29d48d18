package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

func TestDashboard_ReloadsOnPortfolioChanged(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100").withPortfolio(2, "Income", "50")
	h := newHarness(api)
	d := NewDashboard(api, h.deps)
	renders := 0
	d.OnRender(func() { renders++ })

	assert.Equal(t, StateUninitialized, d.State())

	h.deps.Bus.Publish(events.PortfolioChanged{PortfolioID: 1})
	require.Equal(t, int64(1), d.Summary().PortfolioID)

	h.deps.Bus.Publish(events.PortfolioChanged{PortfolioID: 2})
	s := d.Summary()
	require.NotNil(t, s)
	assert.Equal(t, int64(2), s.PortfolioID)
	assert.Equal(t, "Income", s.PortfolioName)
	assert.Equal(t, StateReady, d.State())
	assert.Equal(t, 4, renders, "loading and ready for each change")
}

func TestDashboard_DiscardsStaleResponse(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100").withPortfolio(2, "Income", "50")
	release := make(chan struct{})
	api.gate = func(method string, id int64) {
		if method == "GetDashboard" && id == 1 {
			<-release
		}
	}
	h := newHarness(api)
	var wg sync.WaitGroup
	h.deps.Async = func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	d := NewDashboard(api, h.deps)

	h.deps.Bus.Publish(events.PortfolioChanged{PortfolioID: 1})
	require.Eventually(t, func() bool { return api.called("GetDashboard") == 1 }, time.Second, time.Millisecond)

	h.deps.Bus.Publish(events.PortfolioChanged{PortfolioID: 2})
	require.Eventually(t, func() bool {
		s := d.Summary()
		return s != nil && s.PortfolioID == 2
	}, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, int64(2), d.Summary().PortfolioID)
	assert.Equal(t, StateReady, d.State())
}

func TestDashboard_FailureKeepsLastGoodData(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100")
	h := newHarness(api)
	d := NewDashboard(api, h.deps)
	require.NoError(t, d.Open(context.Background(), 1))

	api.fail("GetDashboard", errBackend)
	err := d.Load(context.Background())

	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateError, d.State())
	assert.ErrorIs(t, d.Err(), errBackend)
	assert.Equal(t, "Growth", d.Summary().PortfolioName)
	assert.Equal(t, []string{"error: Failed to load dashboard data"}, h.toasts.all())

	api.fail("GetDashboard", nil)
	require.NoError(t, d.Load(context.Background()))
	assert.Equal(t, StateReady, d.State())
	assert.NoError(t, d.Err())
}

func TestDashboard_BenchmarksFailureIsNotFatal(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100")
	api.fail("ListBenchmarks", errBackend)
	h := newHarness(api)
	d := NewDashboard(api, h.deps)

	require.NoError(t, d.Open(context.Background(), 1))
	assert.Equal(t, StateReady, d.State())
	assert.Empty(t, d.Benchmarks())
	assert.Empty(t, h.toasts.all())
}

func TestDashboard_NoPortfolio(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(api)
	d := NewDashboard(api, h.deps)

	require.NoError(t, d.Load(context.Background()))
	assert.Nil(t, d.Summary())
	assert.Nil(t, d.Cards())
	assert.Zero(t, api.called("GetDashboard"))
}

func TestDashboard_ChartsReplacedOnReload(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "100")
	api.dashboards[1].AssetAllocation = []finbuddy.AssetAllocation{
		{AssetType: "STOCK", TotalValue: decimal.NewFromInt(70)},
		{AssetType: "BOND", TotalValue: decimal.NewFromInt(30)},
	}
	api.dashboards[1].TopPerformers = []finbuddy.AssetPerformance{
		{Symbol: "AAPL", GainLossPercentage: decimal.NewFromInt(12)},
	}
	h := newHarness(api)
	d := NewDashboard(api, h.deps)

	require.NoError(t, d.Open(context.Background(), 1))
	first := h.deps.Charts.Get(CanvasAllocation)
	require.NotNil(t, first)

	require.NoError(t, d.Load(context.Background()))

	assert.True(t, first.Destroyed())
	assert.Equal(t, 1, h.deps.Charts.Live(CanvasAllocation))
	assert.Equal(t, 1, h.deps.Charts.Live(CanvasTopPerformers))
	assert.Equal(t, 2, h.deps.Charts.LiveTotal())
	assert.Equal(t, []string{"STOCK", "BOND"}, h.deps.Charts.Get(CanvasAllocation).Data.Labels)
}

func TestDashboard_CardsUseDisplayCurrency(t *testing.T) {
	api := newFakeAPI().withPortfolio(1, "Growth", "1000")
	api.dashboards[1].TotalInvestment = decimal.NewFromInt(800)
	api.dashboards[1].TotalGainLoss = decimal.NewFromInt(200)
	api.dashboards[1].GainLossPercentage = decimal.NewFromInt(25)
	api.dashboards[1].AssetCount = 3
	api.rates["INR"] = decimal.NewFromInt(83)
	h := newHarness(api)
	d := NewDashboard(api, h.deps)
	require.NoError(t, d.Open(context.Background(), 1))

	h.deps.Currency.SetDisplay("INR")
	h.deps.Currency.EnsureRate(context.Background(), "INR")

	cards := d.Cards()
	require.Len(t, cards, 4)
	assert.Equal(t, "₹83,000.00", cards[0].Value)
	assert.Equal(t, "₹66,400.00", cards[1].Value)
	assert.Equal(t, "₹16,600.00", cards[2].Value)
	assert.Equal(t, "+25.00%", cards[2].Change)
	assert.True(t, cards[2].Positive)
	assert.Equal(t, "3", cards[3].Value)
}
