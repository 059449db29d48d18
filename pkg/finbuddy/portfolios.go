package finbuddy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ListPortfolios retrieves every portfolio.
func (c *Client) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	var portfolios []Portfolio
	if err := c.call(ctx, http.MethodGet, "/portfolios", nil, &portfolios); err != nil {
		return nil, err
	}
	return portfolios, nil
}

// GetPortfolio retrieves a single portfolio.
func (c *Client) GetPortfolio(ctx context.Context, id int64) (*Portfolio, error) {
	var p Portfolio
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/portfolios/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePortfolio creates a portfolio and returns it with its new id.
func (c *Client) CreatePortfolio(ctx context.Context, in PortfolioInput) (*Portfolio, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("portfolio name is required")
	}
	var p Portfolio
	if err := c.call(ctx, http.MethodPost, "/portfolios", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePortfolio replaces a portfolio's name, description and base currency.
func (c *Client) UpdatePortfolio(ctx context.Context, id int64, in PortfolioInput) (*Portfolio, error) {
	var p Portfolio
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/portfolios/%d", id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePortfolio deletes a portfolio and its assets.
func (c *Client) DeletePortfolio(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/portfolios/%d", id), nil, nil)
}

// GetDashboard retrieves the dashboard summary of a portfolio.
func (c *Client) GetDashboard(ctx context.Context, id int64) (*DashboardSummary, error) {
	var d DashboardSummary
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/portfolios/%d/dashboard", id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// RecalculatePortfolio asks the backend to refresh prices and totals.
func (c *Client) RecalculatePortfolio(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/portfolios/%d/recalculate", id), nil, nil)
}

// GetRiskAnalysis retrieves risk metrics of a portfolio.
func (c *Client) GetRiskAnalysis(ctx context.Context, id int64) (RiskAnalysis, error) {
	var r RiskAnalysis
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/portfolios/%d/risk-analysis", id), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetPortfolioHistory retrieves daily value snapshots between startDate and
// endDate (YYYY-MM-DD). Empty bounds are left to the backend.
func (c *Client) GetPortfolioHistory(ctx context.Context, id int64, startDate, endDate string) ([]HistoryPoint, error) {
	params := map[string]string{}
	if startDate != "" {
		params["startDate"] = startDate
	}
	if endDate != "" {
		params["endDate"] = endDate
	}

	var points []HistoryPoint
	path := withQuery(fmt.Sprintf("/portfolios/%d/history", id), params)
	if err := c.call(ctx, http.MethodGet, path, nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}
