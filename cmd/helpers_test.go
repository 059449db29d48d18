package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/output"
	"github.com/finbuddy/fin/internal/prefs"
)

var testPortfolios = []map[string]any{
	{"id": 1, "name": "Growth", "baseCurrency": "USD", "totalValue": 1500, "totalInvestment": 1000, "totalGainLoss": 500, "gainLossPercentage": 50},
	{"id": 2, "name": "Income", "baseCurrency": "USD", "totalValue": 800, "totalInvestment": 900, "totalGainLoss": -100, "gainLossPercentage": -11.11},
}

var testAssets = []map[string]any{
	{"id": 11, "assetType": "STOCK", "name": "Apple Inc.", "symbol": "AAPL", "quantity": 10, "purchasePrice": 100, "currentPrice": 150,
		"investedAmount": 1000, "currentValue": 1500, "gainLoss": 500, "gainLossPercentage": 50, "currency": "USD"},
	{"id": 12, "assetType": "STOCK", "name": "Microsoft", "symbol": "MSFT", "quantity": 2, "purchasePrice": 300, "currentPrice": 250,
		"investedAmount": 600, "currentValue": 500, "gainLoss": -100, "gainLossPercentage": -16.67, "currency": "USD"},
}

// respondJSON answers every request with v encoded as JSON.
func respondJSON(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondEnvelope wraps data in the {success, data} envelope.
func respondEnvelope(data any) http.HandlerFunc {
	return respondJSON(map[string]any{"success": true, "data": data})
}

// respondStatus answers with an error status and message.
func respondStatus(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
	}
}

// newTestServer serves routes keyed by ServeMux patterns. The portfolio list
// every session starts with is served unless routes overrides it.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	if _, ok := routes["GET /portfolios"]; !ok {
		mux.HandleFunc("GET /portfolios", respondJSON(testPortfolios))
	}
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// testOptions holds apiOptions pointing at a test server, with portfolio 1
// active and toasts captured.
type testOptions struct {
	*apiOptions
	store  *prefs.MemoryStore
	toasts *bytes.Buffer
}

func newTestOptions(baseURL string) testOptions {
	store := prefs.NewMemoryStore().WithData(prefs.KeyActivePortfolio, "1")
	toasts := &bytes.Buffer{}
	return testOptions{
		apiOptions: &apiOptions{
			baseURL:   baseURL,
			prefs:     store,
			notifier:  output.NewToaster(toasts),
			confirmer: controller.ConfirmFunc(func(string) bool { return true }),
			log:       zerolog.Nop(),
		},
		store:  store,
		toasts: toasts,
	}
}

// run executes cmd with args and returns stdout and stderr.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	return runContext(t, context.Background(), cmd, args...)
}

func runContext(t *testing.T, ctx context.Context, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// decodeJSON unmarshals command output into v.
func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(out), v), "output: %s", out)
}
