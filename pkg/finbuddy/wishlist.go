package finbuddy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

func wishlistPath(portfolioID int64) string {
	return fmt.Sprintf("/portfolios/%d/wishlist", portfolioID)
}

// ListWishlist retrieves the watched symbols of a portfolio.
func (c *Client) ListWishlist(ctx context.Context, portfolioID int64) ([]WishlistItem, error) {
	var items []WishlistItem
	if err := c.callEnvelope(ctx, http.MethodGet, wishlistPath(portfolioID), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetWishlistSummary retrieves wishlist counters.
func (c *Client) GetWishlistSummary(ctx context.Context, portfolioID int64) (*WishlistSummary, error) {
	var s WishlistSummary
	if err := c.callEnvelope(ctx, http.MethodGet, wishlistPath(portfolioID)+"/summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AddWishlistItem watches a new symbol.
func (c *Client) AddWishlistItem(ctx context.Context, portfolioID int64, req AddWishlistItemRequest) (*WishlistItem, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if req.Category == "" {
		return nil, fmt.Errorf("category is required")
	}

	var item WishlistItem
	if err := c.callEnvelope(ctx, http.MethodPost, wishlistPath(portfolioID), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateWishlistItem patches a wishlist item.
func (c *Client) UpdateWishlistItem(ctx context.Context, portfolioID, itemID int64, upd WishlistUpdate) (*WishlistItem, error) {
	var item WishlistItem
	path := fmt.Sprintf("%s/%d", wishlistPath(portfolioID), itemID)
	if err := c.callEnvelope(ctx, http.MethodPut, path, upd, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteWishlistItem stops watching a symbol.
func (c *Client) DeleteWishlistItem(ctx context.Context, portfolioID, itemID int64) error {
	path := fmt.Sprintf("%s/%d", wishlistPath(portfolioID), itemID)
	return c.callEnvelope(ctx, http.MethodDelete, path, nil, nil)
}

// RefreshWishlistPrices asks the backend to refresh prices and returns the
// updated items.
func (c *Client) RefreshWishlistPrices(ctx context.Context, portfolioID int64) ([]WishlistItem, error) {
	var items []WishlistItem
	if err := c.callEnvelope(ctx, http.MethodPost, wishlistPath(portfolioID)+"/refresh", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
