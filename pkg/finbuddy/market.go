package finbuddy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GetStockQuote retrieves a quote for one symbol.
func (c *Client) GetStockQuote(ctx context.Context, symbol string) (*Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	var q Quote
	path := "/market/stock/" + url.PathEscape(strings.ToUpper(symbol))
	if err := c.call(ctx, http.MethodGet, path, nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetBatchQuotes retrieves quotes for several symbols in one call.
func (c *Client) GetBatchQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	var quotes []Quote
	if err := c.call(ctx, http.MethodPost, "/market/batch-quotes", upper, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// GetExchangeRate retrieves the rate converting from into to.
func (c *Client) GetExchangeRate(ctx context.Context, from, to string) (*ExchangeRate, error) {
	var r ExchangeRate
	path := withQuery("/market/exchange-rate", map[string]string{"from": from, "to": to})
	if err := c.call(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, err
	}
	if !r.Rate.IsPositive() {
		return nil, fmt.Errorf("invalid exchange rate %s for %s/%s", r.Rate, from, to)
	}
	return &r, nil
}

// GetBenchmarkValue retrieves the latest value of a market index.
func (c *Client) GetBenchmarkValue(ctx context.Context, index string) (*BenchmarkValue, error) {
	var b BenchmarkValue
	if err := c.call(ctx, http.MethodGet, "/market/benchmark/"+url.PathEscape(index), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Search looks up symbols. assetType narrows SearchAll results and is
// ignored for the other kinds.
func (c *Client) Search(ctx context.Context, kind SearchKind, query, assetType string) ([]SearchResult, error) {
	path := "/market/search"
	params := map[string]string{"query": query}
	switch kind {
	case SearchStocks, "":
	case SearchBonds, SearchMutualFunds, SearchSIPs:
		path += "/" + string(kind)
	case SearchAll:
		path += "/all"
		if assetType != "" {
			params["type"] = assetType
		}
	default:
		return nil, fmt.Errorf("unsupported search kind: %s", kind)
	}

	var results []SearchResult
	if err := c.call(ctx, http.MethodGet, withQuery(path, params), nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}
