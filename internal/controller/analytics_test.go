package controller

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbuddy/fin/pkg/finbuddy"
)

func TestCAGR(t *testing.T) {
	tests := []struct {
		name           string
		initial, final string
		years          float64
		want           string
	}{
		{"one year gain", "1000", "1200", 1, "20"},
		{"one year loss", "1000", "900", 1, "-10"},
		{"two years", "1000", "1210", 2, "10"},
		{"nothing invested", "0", "500", 1, "0"},
		{"no period", "1000", "1200", 0, "0"},
		{"wiped out over two years", "1000", "0", 2, "-100"},
		{"negative value over three years", "100", "-50", 3, "0"},
		{"negative value over one year", "100", "-50", 1, "-150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CAGR(decimal.RequireFromString(tt.initial), decimal.RequireFromString(tt.final), tt.years)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestTimeRange_Start(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-05-15", Range1M.Start(now))
	assert.Equal(t, "2024-03-15", Range3M.Start(now))
	assert.Equal(t, "2023-12-15", Range6M.Start(now))
	assert.Equal(t, "2023-06-15", Range1Y.Start(now))
	assert.Equal(t, "", RangeAll.Start(now))

	r, err := ParseTimeRange("1y")
	require.NoError(t, err)
	assert.Equal(t, Range1Y, r)

	_, err = ParseTimeRange("5Y")
	assert.Error(t, err)
}

func analyticsFixture() *fakeAPI {
	api := newFakeAPI().withPortfolio(1, "Growth", "1200")
	api.dashboards[1].TotalInvestment = decimal.NewFromInt(1000)
	bond := finbuddy.Asset{
		ID: 3, AssetType: finbuddy.AssetBond, Name: "T-Bill", Quantity: 1,
		CurrentValue: decimal.NewFromInt(300), GainLossPercentage: decimal.NewFromInt(-2),
	}
	a := stock(1, "Apple", "AAPL", 3, "200")
	a.GainLossPercentage = decimal.NewFromInt(25)
	m := stock(2, "Microsoft", "MSFT", 1, "300")
	m.GainLossPercentage = decimal.NewFromInt(5)
	api.assets[1] = []finbuddy.Asset{a, m, bond}
	api.history = []finbuddy.HistoryPoint{
		{RecordDate: "2024-01-01", TotalValue: decimal.NewFromInt(1000)},
		{RecordDate: "2024-02-01", TotalValue: decimal.NewFromInt(1100)},
		{RecordDate: "2024-03-01", TotalValue: decimal.NewFromInt(1200)},
	}
	return api
}

func TestAnalytics_Metrics(t *testing.T) {
	api := analyticsFixture()
	h := newHarness(api)
	a := NewAnalytics(api, h.deps)
	assert.Nil(t, a.Metrics())

	require.NoError(t, a.Open(context.Background(), 1))

	m := a.Metrics()
	require.NotNil(t, m)
	assert.Equal(t, "200", m.TotalReturns.String())
	assert.Equal(t, "20", m.ReturnsPct.String())
	assert.Equal(t, "20", m.CAGR.String())
	assert.Equal(t, "AAPL", m.Best.Symbol)
	assert.Equal(t, "T-Bill", m.Worst.Name)
	assert.Equal(t, "MEDIUM", a.Risk()["riskLevel"])
	assert.Len(t, a.History(), 3)
}

func TestAnalytics_AllocationAndTopPerformers(t *testing.T) {
	api := analyticsFixture()
	h := newHarness(api)
	a := NewAnalytics(api, h.deps)
	require.NoError(t, a.Open(context.Background(), 1))

	alloc := a.Allocation()
	require.Len(t, alloc, 2)
	assert.Equal(t, finbuddy.AssetStock, alloc[0].AssetType)
	assert.Equal(t, "900", alloc[0].Value.String())
	assert.Equal(t, "75", alloc[0].Percent.String())
	assert.Equal(t, "25", alloc[1].Percent.String())

	top := a.TopPerformers(2)
	require.Len(t, top, 2)
	assert.Equal(t, "AAPL", top[0].Symbol)
	assert.Equal(t, "MSFT", top[1].Symbol)
}

func TestAnalytics_Charts(t *testing.T) {
	api := analyticsFixture()
	h := newHarness(api)
	a := NewAnalytics(api, h.deps)
	require.NoError(t, a.Open(context.Background(), 1))

	perf := h.deps.Charts.Get(CanvasPerformance)
	require.NotNil(t, perf)
	assert.Equal(t, []float64{0, 10, 20}, perf.Data.Values)
	assert.Equal(t, 1, h.deps.Charts.Live(CanvasAssetTypes))
	assert.Equal(t, 1, h.deps.Charts.Live(CanvasReturns))
}

func TestAnalytics_SetRangeReloads(t *testing.T) {
	api := analyticsFixture()
	h := newHarness(api)
	a := NewAnalytics(api, h.deps)
	a.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, a.Open(context.Background(), 1))
	assert.Equal(t, 1, api.called("GetPortfolioHistory:2023-12-15"))

	require.NoError(t, a.SetRange(context.Background(), Range1M))

	assert.Equal(t, Range1M, a.Range())
	assert.Equal(t, 1, api.called("GetPortfolioHistory:2024-05-15"))
	assert.Equal(t, 2, api.called("GetDashboard"))
}

func TestAnalytics_OptionalEndpointsMayFail(t *testing.T) {
	api := analyticsFixture()
	api.fail("GetRiskAnalysis", errBackend)
	h := newHarness(api)
	a := NewAnalytics(api, h.deps)

	require.NoError(t, a.Open(context.Background(), 1))
	assert.Equal(t, StateReady, a.State())
	assert.Nil(t, a.Risk())
}

func TestAnalytics_Failure(t *testing.T) {
	api := analyticsFixture()
	api.fail("ListAssets", errBackend)
	h := newHarness(api)
	a := NewAnalytics(api, h.deps)

	err := a.Open(context.Background(), 1)

	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateError, a.State())
	assert.Equal(t, []string{"error: Failed to load analytics data"}, h.toasts.all())
}
