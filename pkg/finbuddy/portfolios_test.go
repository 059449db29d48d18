package finbuddy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListPortfolios(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/portfolios", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "Growth", "baseCurrency": "USD", "totalValue": 15234.55, "totalGainLoss": -12.5},
			{"id": 2, "name": "Retirement", "totalValue": "1000.10"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	portfolios, err := client.ListPortfolios(context.Background())
	require.NoError(t, err)
	require.Len(t, portfolios, 2)

	assert.Equal(t, int64(1), portfolios[0].ID)
	assert.Equal(t, "Growth", portfolios[0].Name)
	assert.True(t, decimal.RequireFromString("15234.55").Equal(portfolios[0].TotalValue))
	assert.True(t, decimal.RequireFromString("-12.5").Equal(portfolios[0].TotalGainLoss))
	assert.True(t, decimal.RequireFromString("1000.10").Equal(portfolios[1].TotalValue))
	assert.True(t, portfolios[1].TotalInvestment.IsZero())
}

func TestClient_CreatePortfolio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/portfolios", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Retirement", body["name"])
		assert.Equal(t, "USD", body["baseCurrency"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 7, "name": "Retirement", "baseCurrency": "USD"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	p, err := client.CreatePortfolio(context.Background(), PortfolioInput{Name: "Retirement", BaseCurrency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
}

func TestClient_CreatePortfolio_RequiresName(t *testing.T) {
	client := NewClient("http://unused")

	_, err := client.CreatePortfolio(context.Background(), PortfolioInput{Name: "  "})
	assert.EqualError(t, err, "portfolio name is required")
}

func TestClient_UpdateAndDeletePortfolio(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolios/3", r.URL.Path)
		methods = append(methods, r.Method)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"id": 3, "name": "Renamed"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	p, err := client.UpdatePortfolio(context.Background(), 3, PortfolioInput{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)

	require.NoError(t, client.DeletePortfolio(context.Background(), 3))
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestClient_GetDashboard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolios/1/dashboard", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"portfolioId": 1,
			"portfolioName": "Growth",
			"totalValue": 2000,
			"totalInvestment": 1500,
			"totalGainLoss": 500,
			"gainLossPercentage": 33.33,
			"assetAllocation": [{"assetType": "STOCK", "totalValue": 2000, "percentage": 100, "count": 2}],
			"topPerformers": [{"assetId": 4, "name": "Apple", "symbol": "AAPL", "gainLossPercentage": 12.5}],
			"assetCount": 2,
			"wishlistCount": 1
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	d, err := client.GetDashboard(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Growth", d.PortfolioName)
	require.Len(t, d.AssetAllocation, 1)
	assert.Equal(t, "STOCK", d.AssetAllocation[0].AssetType)
	require.Len(t, d.TopPerformers, 1)
	assert.Equal(t, "AAPL", d.TopPerformers[0].Symbol)
	assert.Equal(t, 2, d.AssetCount)
}

func TestClient_GetDashboard_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Portfolio not found with id: 9"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.GetDashboard(context.Background(), 9)
	require.Error(t, err)
	assert.Equal(t, "Portfolio not found with id: 9", err.Error())
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())
}

func TestClient_RecalculatePortfolio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/portfolios/5/recalculate", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 5}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	assert.NoError(t, client.RecalculatePortfolio(context.Background(), 5))
}

func TestClient_GetPortfolioHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolios/1/history", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-03-31", r.URL.Query().Get("endDate"))
		_, _ = w.Write([]byte(`[
			{"recordDate": "2024-01-01", "totalValue": 1000},
			{"recordDate": "2024-03-31", "totalValue": 1100}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	points, err := client.GetPortfolioHistory(context.Background(), 1, "2024-01-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-03-31", points[1].RecordDate)
}

func TestClient_GetRiskAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolios/2/risk-analysis", r.URL.Path)
		_, _ = w.Write([]byte(`{"volatility": 0.21, "riskLevel": "MEDIUM"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	risk, err := client.GetRiskAnalysis(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "MEDIUM", risk["riskLevel"])
}
