package controller

import (
	"context"
	"strings"

	"github.com/finbuddy/fin/pkg/finbuddy"
)

// BenchmarksAPI is the part of the gateway the benchmarks panel needs.
type BenchmarksAPI interface {
	ListBenchmarks(ctx context.Context, portfolioID int64) ([]finbuddy.Benchmark, error)
	AddBenchmark(ctx context.Context, portfolioID int64, req finbuddy.BenchmarkRequest) (*finbuddy.Benchmark, error)
	DeleteBenchmark(ctx context.Context, portfolioID, benchmarkID int64) error
	RefreshBenchmarks(ctx context.Context, portfolioID int64) ([]finbuddy.Benchmark, error)
}

// Benchmarks manages the market indices compared against a portfolio.
type Benchmarks struct {
	page
	api BenchmarksAPI

	list []finbuddy.Benchmark
}

// NewBenchmarks creates the benchmarks controller.
func NewBenchmarks(api BenchmarksAPI, deps Deps) *Benchmarks {
	b := &Benchmarks{api: api}
	b.init("benchmarks", deps)
	b.follow(b.Load)
	return b
}

// Load fetches the benchmarks of the active portfolio.
func (b *Benchmarks) Load(ctx context.Context) error {
	t := b.begin()
	if t.portfolioID == 0 {
		b.idle(t, func() { b.list = nil })
		return nil
	}
	list, err := b.api.ListBenchmarks(ctx, t.portfolioID)
	if err != nil {
		b.fail(t, err, "Failed to load benchmarks")
		return err
	}
	b.finish(t, func() { b.list = list })
	return nil
}

// List returns the loaded benchmarks.
func (b *Benchmarks) List() []finbuddy.Benchmark {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]finbuddy.Benchmark(nil), b.list...)
}

// Add tracks a new index.
func (b *Benchmarks) Add(ctx context.Context, req finbuddy.BenchmarkRequest) (*finbuddy.Benchmark, error) {
	id := b.PortfolioID()
	if id == 0 {
		b.notify(LevelWarning, "Please select a portfolio first")
		return nil, ErrNoPortfolio
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Name = strings.TrimSpace(req.Name)
	if req.Symbol == "" || req.Name == "" {
		return nil, b.report(invalid("benchmark symbol and name are required"), "Failed to add benchmark")
	}

	created, err := b.api.AddBenchmark(ctx, id, req)
	if err != nil {
		return nil, b.report(err, "Failed to add benchmark")
	}
	b.notify(LevelSuccess, "Benchmark added")
	return created, b.Load(ctx)
}

// Delete stops tracking an index after confirmation.
func (b *Benchmarks) Delete(ctx context.Context, benchmarkID int64) error {
	id := b.PortfolioID()
	if id == 0 {
		return ErrNoPortfolio
	}
	if !b.confirm("Remove this benchmark?") {
		return ErrCancelled
	}
	if err := b.api.DeleteBenchmark(ctx, id, benchmarkID); err != nil {
		return b.report(err, "Failed to remove benchmark")
	}
	b.notify(LevelSuccess, "Benchmark removed")
	return b.Load(ctx)
}

// Refresh updates index values from the market.
func (b *Benchmarks) Refresh(ctx context.Context) error {
	id := b.PortfolioID()
	if id == 0 {
		b.notify(LevelWarning, "Please select a portfolio first")
		return ErrNoPortfolio
	}

	t := b.begin()
	list, err := b.api.RefreshBenchmarks(ctx, id)
	if err != nil {
		b.fail(t, err, "Failed to refresh benchmarks")
		return err
	}
	if b.finish(t, func() { b.list = list }) {
		b.notify(LevelSuccess, "Benchmarks refreshed")
	}
	return nil
}
