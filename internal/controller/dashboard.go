package controller

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/finbuddy/fin/internal/chart"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// Canvas names used by the dashboard.
const (
	CanvasAllocation    = "allocationChart"
	CanvasTopPerformers = "topPerformersChart"
)

// DashboardAPI is the part of the gateway the dashboard needs.
type DashboardAPI interface {
	GetDashboard(ctx context.Context, id int64) (*finbuddy.DashboardSummary, error)
	ListBenchmarks(ctx context.Context, portfolioID int64) ([]finbuddy.Benchmark, error)
}

// Card is one summary tile.
type Card struct {
	Title    string
	Value    string
	Change   string
	Positive bool
}

// Dashboard shows the active portfolio's totals, allocation and top
// performers.
type Dashboard struct {
	page
	api DashboardAPI

	summary    *finbuddy.DashboardSummary
	benchmarks []finbuddy.Benchmark
}

// NewDashboard creates the dashboard controller. It reloads whenever the
// active portfolio changes.
func NewDashboard(api DashboardAPI, deps Deps) *Dashboard {
	d := &Dashboard{api: api}
	d.init("dashboard", deps)
	d.follow(d.Load)
	return d
}

// Load fetches the summary and benchmarks concurrently. A benchmarks failure
// only hides the benchmarks panel.
func (d *Dashboard) Load(ctx context.Context) error {
	t := d.begin()
	if t.portfolioID == 0 {
		d.idle(t, func() {
			d.summary = nil
			d.benchmarks = nil
		})
		return nil
	}

	var (
		summary    *finbuddy.DashboardSummary
		benchmarks []finbuddy.Benchmark
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := d.api.GetDashboard(gctx, t.portfolioID)
		summary = s
		return err
	})
	g.Go(func() error {
		b, err := d.api.ListBenchmarks(gctx, t.portfolioID)
		if err != nil {
			d.log.Warn().Err(err).Msg("benchmarks unavailable")
			return nil
		}
		benchmarks = b
		return nil
	})
	if err := g.Wait(); err != nil {
		d.fail(t, err, "Failed to load dashboard data")
		return err
	}

	d.finish(t, func() {
		d.summary = summary
		d.benchmarks = benchmarks
		d.drawCharts(summary)
	})
	return nil
}

// Summary returns the loaded summary, or nil.
func (d *Dashboard) Summary() *finbuddy.DashboardSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.summary == nil {
		return nil
	}
	s := *d.summary
	return &s
}

// Benchmarks returns the benchmarks tracked by the portfolio.
func (d *Dashboard) Benchmarks() []finbuddy.Benchmark {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]finbuddy.Benchmark(nil), d.benchmarks...)
}

// Cards returns the summary tiles in the display currency.
func (d *Dashboard) Cards() []Card {
	s := d.Summary()
	if s == nil {
		return nil
	}
	conv := d.deps.Currency
	return []Card{
		{Title: "Total Value", Value: conv.Format(s.TotalValue), Positive: true},
		{Title: "Total Investment", Value: conv.Format(s.TotalInvestment), Positive: true},
		{
			Title:    "Total Gain/Loss",
			Value:    conv.Format(s.TotalGainLoss),
			Change:   currency.FormatPercentage(s.GainLossPercentage),
			Positive: s.TotalGainLoss.Sign() >= 0,
		},
		{Title: "Assets", Value: strconv.Itoa(s.AssetCount), Positive: true},
	}
}

func (d *Dashboard) drawCharts(s *finbuddy.DashboardSummary) {
	alloc := chart.Data{}
	for _, a := range s.AssetAllocation {
		alloc.Labels = append(alloc.Labels, a.AssetType)
		alloc.Values = append(alloc.Values, d.deps.Currency.Convert(a.TotalValue).InexactFloat64())
	}
	if _, err := d.deps.Charts.Render(CanvasAllocation, chart.Doughnut, alloc, chart.Options{Title: "Asset Allocation"}); err != nil {
		d.log.Warn().Err(err).Msg("allocation chart")
	}

	top := chart.Data{}
	for _, p := range s.TopPerformers {
		label := p.Symbol
		if label == "" {
			label = p.Name
		}
		top.Labels = append(top.Labels, label)
		top.Values = append(top.Values, p.GainLossPercentage.InexactFloat64())
	}
	opts := chart.Options{
		Title: "Top Performers",
		FormatValue: func(v float64) string {
			return currency.FormatPercentage(decimal.NewFromFloat(v))
		},
	}
	if _, err := d.deps.Charts.Render(CanvasTopPerformers, chart.Bar, top, opts); err != nil {
		d.log.Warn().Err(err).Msg("top performers chart")
	}
}
