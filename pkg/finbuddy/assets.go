package finbuddy

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// ListAssets retrieves the assets held in a portfolio.
func (c *Client) ListAssets(ctx context.Context, portfolioID int64) ([]Asset, error) {
	var assets []Asset
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/assets/portfolio/%d", portfolioID), nil, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetAsset retrieves a single asset.
func (c *Client) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	var a Asset
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/assets/%d", id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAsset adds an asset to a portfolio. The endpoint depends on the asset
// type; an unsupported type fails before any request is made.
func (c *Client) CreateAsset(ctx context.Context, portfolioID int64, in Asset) (*Asset, error) {
	endpoint, ok := assetEndpoints[in.AssetType]
	if !ok {
		return nil, fmt.Errorf("unsupported asset type: %q", in.AssetType)
	}

	var a Asset
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/assets/%s/%d", endpoint, portfolioID), in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAsset replaces an asset.
func (c *Client) UpdateAsset(ctx context.Context, id int64, in Asset) (*Asset, error) {
	var a Asset
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/assets/%d", id), in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAsset removes an asset.
func (c *Client) DeleteAsset(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/assets/%d", id), nil, nil)
}

// SellAsset sells quantity units of an asset. Selling everything removes it.
func (c *Client) SellAsset(ctx context.Context, id int64, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity to sell must be positive")
	}
	path := withQuery(fmt.Sprintf("/assets/%d/sell", id), map[string]string{
		"quantityToSell": strconv.FormatInt(quantity, 10),
	})
	return c.call(ctx, http.MethodPost, path, nil, nil)
}

// SearchAssets searches assets held across portfolios.
func (c *Client) SearchAssets(ctx context.Context, query string) ([]Asset, error) {
	var assets []Asset
	path := withQuery("/assets/search", map[string]string{"query": query})
	if err := c.call(ctx, http.MethodGet, path, nil, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// UpdateAssetPrice sets the current price of an asset.
func (c *Client) UpdateAssetPrice(ctx context.Context, id int64, price decimal.Decimal) (*Asset, error) {
	body := struct {
		CurrentPrice decimal.Decimal `json:"currentPrice"`
	}{price}

	var a Asset
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/assets/%d/price", id), body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
