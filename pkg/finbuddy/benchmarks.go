package finbuddy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

func benchmarksPath(portfolioID int64) string {
	return fmt.Sprintf("/portfolios/%d/benchmarks", portfolioID)
}

// ListBenchmarks retrieves the benchmarks tracked by a portfolio.
func (c *Client) ListBenchmarks(ctx context.Context, portfolioID int64) ([]Benchmark, error) {
	var benchmarks []Benchmark
	if err := c.callEnvelope(ctx, http.MethodGet, benchmarksPath(portfolioID), nil, &benchmarks); err != nil {
		return nil, err
	}
	return benchmarks, nil
}

// AddBenchmark starts tracking a market index.
func (c *Client) AddBenchmark(ctx context.Context, portfolioID int64, req BenchmarkRequest) (*Benchmark, error) {
	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("benchmark symbol and name are required")
	}

	var b Benchmark
	if err := c.callEnvelope(ctx, http.MethodPost, benchmarksPath(portfolioID), req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBenchmark stops tracking a benchmark.
func (c *Client) DeleteBenchmark(ctx context.Context, portfolioID, benchmarkID int64) error {
	path := fmt.Sprintf("%s/%d", benchmarksPath(portfolioID), benchmarkID)
	return c.callEnvelope(ctx, http.MethodDelete, path, nil, nil)
}

// RefreshBenchmarks asks the backend to refresh index values.
func (c *Client) RefreshBenchmarks(ctx context.Context, portfolioID int64) ([]Benchmark, error) {
	var benchmarks []Benchmark
	if err := c.callEnvelope(ctx, http.MethodPost, benchmarksPath(portfolioID)+"/refresh", nil, &benchmarks); err != nil {
		return nil, err
	}
	return benchmarks, nil
}
