package controller

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/finbuddy/fin/internal/chart"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// Canvas names used by the analytics page.
const (
	CanvasPerformance = "performanceChart"
	CanvasAssetTypes  = "assetTypeChart"
	CanvasReturns     = "returnsChart"
)

// TimeRange selects the history window of the performance chart.
type TimeRange string

const (
	Range1M  TimeRange = "1M"
	Range3M  TimeRange = "3M"
	Range6M  TimeRange = "6M"
	Range1Y  TimeRange = "1Y"
	RangeAll TimeRange = "ALL"
)

// TimeRanges lists the selectable ranges.
var TimeRanges = []TimeRange{Range1M, Range3M, Range6M, Range1Y, RangeAll}

// ParseTimeRange accepts a range case-insensitively.
func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range TimeRanges {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown time range %q (use 1M, 3M, 6M, 1Y or ALL)", s)
}

// Start returns the first day of the range, or "" for ALL.
func (r TimeRange) Start(now time.Time) string {
	var from time.Time
	switch r {
	case Range1M:
		from = now.AddDate(0, -1, 0)
	case Range3M:
		from = now.AddDate(0, -3, 0)
	case Range6M:
		from = now.AddDate(0, -6, 0)
	case Range1Y:
		from = now.AddDate(-1, 0, 0)
	default:
		return ""
	}
	return from.Format(time.DateOnly)
}

// AnalyticsAPI is the part of the gateway the analytics page needs.
type AnalyticsAPI interface {
	GetDashboard(ctx context.Context, id int64) (*finbuddy.DashboardSummary, error)
	ListAssets(ctx context.Context, portfolioID int64) ([]finbuddy.Asset, error)
	GetRiskAnalysis(ctx context.Context, id int64) (finbuddy.RiskAnalysis, error)
	GetPortfolioHistory(ctx context.Context, id int64, startDate, endDate string) ([]finbuddy.HistoryPoint, error)
}

// Metrics are the headline numbers of the analytics page, in USD.
type Metrics struct {
	TotalValue    decimal.Decimal
	TotalInvested decimal.Decimal
	TotalReturns  decimal.Decimal
	ReturnsPct    decimal.Decimal
	CAGR          decimal.Decimal
	Best          *finbuddy.Asset
	Worst         *finbuddy.Asset
}

// Allocation is the value held in one asset type.
type Allocation struct {
	AssetType finbuddy.AssetType
	Value     decimal.Decimal
	Percent   decimal.Decimal
}

// Analytics computes returns, allocation and history for the active
// portfolio.
type Analytics struct {
	page
	api AnalyticsAPI
	now func() time.Time

	timeRange TimeRange
	dashboard *finbuddy.DashboardSummary
	assets    []finbuddy.Asset
	risk      finbuddy.RiskAnalysis
	history   []finbuddy.HistoryPoint
}

// NewAnalytics creates the analytics page controller.
func NewAnalytics(api AnalyticsAPI, deps Deps) *Analytics {
	a := &Analytics{api: api, now: time.Now, timeRange: Range6M}
	a.init("analytics", deps)
	a.follow(a.Load)
	return a
}

// Range returns the selected time range.
func (a *Analytics) Range() TimeRange {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeRange
}

// SetRange changes the time range and reloads.
func (a *Analytics) SetRange(ctx context.Context, r TimeRange) error {
	a.mu.Lock()
	a.timeRange = r
	a.mu.Unlock()
	if a.PortfolioID() == 0 {
		return nil
	}
	return a.Load(ctx)
}

// Load fetches the dashboard and holdings together. Risk analysis and
// history are optional and only logged when they fail.
func (a *Analytics) Load(ctx context.Context) error {
	t := a.begin()
	if t.portfolioID == 0 {
		a.idle(t, func() {
			a.dashboard = nil
			a.assets = nil
			a.risk = nil
			a.history = nil
		})
		return nil
	}
	start := a.Range().Start(a.now())

	var (
		dashboard *finbuddy.DashboardSummary
		assets    []finbuddy.Asset
		risk      finbuddy.RiskAnalysis
		history   []finbuddy.HistoryPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := a.api.GetDashboard(gctx, t.portfolioID)
		dashboard = d
		return err
	})
	g.Go(func() error {
		list, err := a.api.ListAssets(gctx, t.portfolioID)
		assets = list
		return err
	})
	g.Go(func() error {
		r, err := a.api.GetRiskAnalysis(gctx, t.portfolioID)
		if err != nil {
			a.log.Warn().Err(err).Msg("risk analysis unavailable")
			return nil
		}
		risk = r
		return nil
	})
	g.Go(func() error {
		h, err := a.api.GetPortfolioHistory(gctx, t.portfolioID, start, "")
		if err != nil {
			a.log.Warn().Err(err).Msg("history unavailable")
			return nil
		}
		history = h
		return nil
	})
	if err := g.Wait(); err != nil {
		a.fail(t, err, "Failed to load analytics data")
		return err
	}

	a.finish(t, func() {
		a.dashboard = dashboard
		a.assets = assets
		a.risk = risk
		a.history = history
		a.drawCharts()
	})
	return nil
}

// CAGR is the compound annual growth rate in percent. It is zero when the
// initial value or the period is not positive, or when the final value is
// negative over more than one year and the rate is undefined.
func CAGR(initial, final decimal.Decimal, years float64) decimal.Decimal {
	if initial.Sign() <= 0 || years <= 0 {
		return decimal.Zero
	}
	if years == 1 {
		return final.Div(initial).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(2)
	}
	ratio := final.Div(initial).InexactFloat64()
	if ratio < 0 {
		return decimal.Zero
	}
	rate := (math.Pow(ratio, 1/years) - 1) * 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(rate).Round(2)
}

// Metrics returns the headline numbers, or nil before the first load.
func (a *Analytics) Metrics() *Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dashboard == nil {
		return nil
	}

	m := &Metrics{
		TotalValue:    a.dashboard.TotalValue,
		TotalInvested: a.dashboard.TotalInvestment,
	}
	m.TotalReturns = m.TotalValue.Sub(m.TotalInvested)
	if m.TotalInvested.Sign() > 0 {
		m.ReturnsPct = m.TotalReturns.Div(m.TotalInvested).Mul(decimal.NewFromInt(100)).Round(2)
	}
	m.CAGR = CAGR(m.TotalInvested, m.TotalValue, 1)

	for i := range a.assets {
		as := a.assets[i]
		if m.Best == nil || as.GainLossPercentage.GreaterThan(m.Best.GainLossPercentage) {
			m.Best = &as
		}
		if m.Worst == nil || as.GainLossPercentage.LessThan(m.Worst.GainLossPercentage) {
			m.Worst = &as
		}
	}
	return m
}

// Allocation groups holdings by asset type in a fixed type order.
func (a *Analytics) Allocation() []Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return allocate(a.assets)
}

func allocate(assets []finbuddy.Asset) []Allocation {
	sums := map[finbuddy.AssetType]decimal.Decimal{}
	total := decimal.Zero
	for _, as := range assets {
		sums[as.AssetType] = sums[as.AssetType].Add(as.CurrentValue)
		total = total.Add(as.CurrentValue)
	}
	if total.Sign() <= 0 {
		return nil
	}

	var out []Allocation
	for _, typ := range finbuddy.AssetTypes {
		v, ok := sums[typ]
		if !ok {
			continue
		}
		out = append(out, Allocation{
			AssetType: typ,
			Value:     v,
			Percent:   v.Div(total).Mul(decimal.NewFromInt(100)).Round(1),
		})
	}
	return out
}

// TopPerformers returns up to n holdings with the best return.
func (a *Analytics) TopPerformers(n int) []finbuddy.Asset {
	a.mu.Lock()
	sorted := append([]finbuddy.Asset(nil), a.assets...)
	a.mu.Unlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GainLossPercentage.GreaterThan(sorted[j].GainLossPercentage)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Risk returns the backend's risk metrics, if available.
func (a *Analytics) Risk() finbuddy.RiskAnalysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.risk
}

// History returns the value snapshots of the selected range.
func (a *Analytics) History() []finbuddy.HistoryPoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]finbuddy.HistoryPoint(nil), a.history...)
}

// performance converts history values to percent change from the first
// snapshot.
func performance(history []finbuddy.HistoryPoint) chart.Data {
	var d chart.Data
	if len(history) == 0 {
		return d
	}
	first := history[0].TotalValue
	if first.Sign() <= 0 {
		first = decimal.NewFromInt(100)
	}
	for _, h := range history {
		d.Labels = append(d.Labels, h.RecordDate)
		d.Values = append(d.Values, h.TotalValue.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).InexactFloat64())
	}
	return d
}

func (a *Analytics) drawCharts() {
	opts := chart.Options{Title: "Portfolio Performance"}
	if _, err := a.deps.Charts.Render(CanvasPerformance, chart.Line, performance(a.history), opts); err != nil {
		a.log.Warn().Err(err).Msg("performance chart")
	}

	var alloc chart.Data
	for _, al := range allocate(a.assets) {
		alloc.Labels = append(alloc.Labels, string(al.AssetType))
		alloc.Values = append(alloc.Values, a.deps.Currency.Convert(al.Value).InexactFloat64())
	}
	if _, err := a.deps.Charts.Render(CanvasAssetTypes, chart.Doughnut, alloc, chart.Options{Title: "Asset Distribution"}); err != nil {
		a.log.Warn().Err(err).Msg("asset distribution chart")
	}

	var returns chart.Data
	for _, as := range a.assets {
		returns.Labels = append(returns.Labels, as.DisplaySymbol())
		returns.Values = append(returns.Values, as.GainLossPercentage.InexactFloat64())
	}
	ropts := chart.Options{
		Title: "Returns by Asset",
		FormatValue: func(v float64) string {
			return currency.FormatPercentage(decimal.NewFromFloat(v))
		},
	}
	if _, err := a.deps.Charts.Render(CanvasReturns, chart.Bar, returns, ropts); err != nil {
		a.log.Warn().Err(err).Msg("returns chart")
	}
}
