package finbuddy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Benchmarks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/portfolios/1/benchmarks":
			_, _ = w.Write([]byte(`{"success": true, "count": 1, "data": [{"id": 4, "symbol": "^GSPC", "name": "S&P 500", "currentValue": 5200}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/portfolios/1/benchmarks":
			_, _ = w.Write([]byte(`{"success": true, "data": {"id": 5, "symbol": "^IXIC", "name": "NASDAQ"}}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/portfolios/1/benchmarks/4":
			_, _ = w.Write([]byte(`{"success": true}`))
		case r.Method == http.MethodPost && r.URL.Path == "/portfolios/1/benchmarks/refresh":
			_, _ = w.Write([]byte(`{"success": true, "data": []}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	list, err := client.ListBenchmarks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "S&P 500", list[0].Name)

	b, err := client.AddBenchmark(ctx, 1, BenchmarkRequest{Symbol: "^IXIC", Name: "NASDAQ"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.ID)

	_, err = client.AddBenchmark(ctx, 1, BenchmarkRequest{Symbol: "^IXIC"})
	assert.Error(t, err)

	require.NoError(t, client.DeleteBenchmark(ctx, 1, 4))

	refreshed, err := client.RefreshBenchmarks(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, refreshed)
}
