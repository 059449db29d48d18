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

func TestClient_GetBatchQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/market/batch-quotes", r.URL.Path)

		var symbols []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&symbols))
		assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

		_, _ = w.Write([]byte(`[
			{"symbol": "AAPL", "name": "Apple Inc", "price": 180.5, "change": 1.2, "changePercent": 0.67},
			{"symbol": "MSFT", "name": "Microsoft", "price": 410, "change": -2, "changePercent": -0.49}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	quotes, err := client.GetBatchQuotes(context.Background(), []string{"aapl", "msft"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "Apple Inc", quotes[0].Name)
	assert.True(t, decimal.RequireFromString("-0.49").Equal(quotes[1].ChangePercent))
}

func TestClient_GetBatchQuotes_Empty(t *testing.T) {
	client := NewClient("http://unused")

	quotes, err := client.GetBatchQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestClient_GetStockQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/stock/AAPL", r.URL.Path)
		_, _ = w.Write([]byte(`{"symbol": "AAPL", "price": 181}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	q, err := client.GetStockQuote(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "181", q.Price.String())
}

func TestClient_GetExchangeRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/exchange-rate", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "INR", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{"from": "USD", "to": "INR", "rate": 83.12}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	r, err := client.GetExchangeRate(context.Background(), "USD", "INR")
	require.NoError(t, err)
	assert.Equal(t, "83.12", r.Rate.String())
}

func TestClient_GetExchangeRate_RejectsNonPositive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"from": "USD", "to": "EUR", "rate": 0}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.GetExchangeRate(context.Background(), "USD", "EUR")
	assert.Error(t, err)
}

func TestClient_GetBenchmarkValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/benchmark/^GSPC", r.URL.Path)
		_, _ = w.Write([]byte(`{"symbol": "^GSPC", "value": 5200.1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	b, err := client.GetBenchmarkValue(context.Background(), "^GSPC")
	require.NoError(t, err)
	assert.Equal(t, "5200.1", b.Value.String())
}

func TestClient_Search(t *testing.T) {
	tests := []struct {
		kind      SearchKind
		assetType string
		path      string
		typeParam string
	}{
		{SearchStocks, "", "/market/search", ""},
		{SearchBonds, "", "/market/search/bonds", ""},
		{SearchMutualFunds, "", "/market/search/mutual-funds", ""},
		{SearchSIPs, "", "/market/search/sips", ""},
		{SearchAll, "STOCK", "/market/search/all", "STOCK"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, "app", r.URL.Query().Get("query"))
				assert.Equal(t, tt.typeParam, r.URL.Query().Get("type"))
				_, _ = w.Write([]byte(`[{"symbol": "AAPL", "description": "APPLE INC"}]`))
			}))
			defer server.Close()

			client := NewClient(server.URL)

			results, err := client.Search(context.Background(), tt.kind, "app", tt.assetType)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "APPLE INC", results[0].Description)
		})
	}
}

func TestClient_Search_UnknownKind(t *testing.T) {
	client := NewClient("http://unused")

	_, err := client.Search(context.Background(), "futures", "x", "")
	assert.Error(t, err)
}

func TestClient_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/chat", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "How diversified am I?", body["message"])
		_, _ = w.Write([]byte(`{"reply": "Mostly stocks."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	reply, err := client.Chat(context.Background(), "How diversified am I?")
	require.NoError(t, err)
	assert.Equal(t, "Mostly stocks.", reply)

	_, err = client.Chat(context.Background(), " ")
	assert.Error(t, err)
}
