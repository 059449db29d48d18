package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/internal/schedule"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// AssetsAPI is the part of the gateway the assets page needs.
type AssetsAPI interface {
	ListAssets(ctx context.Context, portfolioID int64) ([]finbuddy.Asset, error)
	CreateAsset(ctx context.Context, portfolioID int64, in finbuddy.Asset) (*finbuddy.Asset, error)
	UpdateAsset(ctx context.Context, id int64, in finbuddy.Asset) (*finbuddy.Asset, error)
	DeleteAsset(ctx context.Context, id int64) error
	SellAsset(ctx context.Context, id int64, quantity int64) error
	SearchAssets(ctx context.Context, query string) ([]finbuddy.Asset, error)
	UpdateAssetPrice(ctx context.Context, id int64, price decimal.Decimal) (*finbuddy.Asset, error)
}

// Assets manages the holdings table of the active portfolio.
type Assets struct {
	page
	api AssetsAPI

	assets   []finbuddy.Asset
	filter   string
	query    string
	searched []finbuddy.Asset

	search *schedule.Debouncer[string]
}

// NewAssets creates the assets page controller.
func NewAssets(api AssetsAPI, deps Deps) *Assets {
	a := &Assets{api: api}
	a.init("assets", deps)
	a.search = schedule.NewDebouncer(a.deps.Debounce, func(q string) {
		a.deps.background(func(ctx context.Context) { _ = a.SearchNow(ctx, q) })
	})
	a.follow(a.Load)
	events.Subscribe(a.deps.Bus, func(e events.StockSelected) {
		if err := a.deps.Session.Set(prefs.KeyPrefillSymbol, e.Symbol); err != nil {
			a.log.Warn().Err(err).Msg("failed to store selected symbol")
		}
	})
	return a
}

// Load fetches the holdings of the active portfolio.
func (a *Assets) Load(ctx context.Context) error {
	t := a.begin()
	if t.portfolioID == 0 {
		a.idle(t, func() { a.assets = nil })
		return nil
	}

	list, err := a.api.ListAssets(ctx, t.portfolioID)
	if err != nil {
		a.fail(t, err, "Failed to load assets")
		return err
	}
	a.finish(t, func() {
		a.assets = list
		a.query = ""
		a.searched = nil
	})
	return nil
}

// Filter narrows the visible rows by name or symbol without a request.
func (a *Assets) Filter(text string) {
	a.mu.Lock()
	a.filter = strings.ToLower(strings.TrimSpace(text))
	a.mu.Unlock()
	a.render()
}

// Rows returns the rows to display: backend search hits while a search is
// active, otherwise the filtered holdings.
func (a *Assets) Rows() []finbuddy.Asset {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.query != "" {
		return append([]finbuddy.Asset(nil), a.searched...)
	}
	var rows []finbuddy.Asset
	for _, as := range a.assets {
		if a.filter == "" ||
			strings.Contains(strings.ToLower(as.Name), a.filter) ||
			strings.Contains(strings.ToLower(as.Symbol), a.filter) {
			rows = append(rows, as)
		}
	}
	return rows
}

// Search schedules a backend search. An empty query reloads the holdings.
func (a *Assets) Search(query string) {
	a.search.Call(strings.TrimSpace(query))
}

// SearchNow runs the backend search immediately.
func (a *Assets) SearchNow(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return a.Load(ctx)
	}

	t := a.begin()
	hits, err := a.api.SearchAssets(ctx, query)
	if err != nil {
		a.fail(t, err, "Search failed")
		return err
	}
	a.finish(t, func() {
		a.query = query
		a.searched = hits
	})
	return nil
}

// PrefillSymbol consumes the symbol handed over by the wishlist or the
// global search, if any.
func (a *Assets) PrefillSymbol() (string, bool) {
	return prefs.Take(a.deps.Session, prefs.KeyPrefillSymbol)
}

// ValidateAsset checks the fields each asset type requires.
func ValidateAsset(in finbuddy.Asset) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("asset name is required")
	}
	if in.Quantity <= 0 {
		return invalid("quantity must be greater than zero")
	}
	switch in.AssetType {
	case finbuddy.AssetStock:
		if strings.TrimSpace(in.Symbol) == "" {
			return invalid("stock symbol is required")
		}
	case finbuddy.AssetSIP:
		if !in.MonthlyInvestment.Valid || in.MonthlyInvestment.Decimal.Sign() <= 0 {
			return invalid("monthly investment must be greater than zero")
		}
		return nil
	case finbuddy.AssetBond, finbuddy.AssetMutualFund:
	default:
		return invalid("unsupported asset type %q", in.AssetType)
	}
	if in.PurchasePrice.Sign() <= 0 {
		return invalid("purchase price must be greater than zero")
	}
	return nil
}

// Create adds a holding to the active portfolio.
func (a *Assets) Create(ctx context.Context, in finbuddy.Asset) (*finbuddy.Asset, error) {
	id := a.PortfolioID()
	if id == 0 {
		a.notify(LevelWarning, "Please select a portfolio first")
		return nil, ErrNoPortfolio
	}
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	if err := ValidateAsset(in); err != nil {
		return nil, a.report(err, "Failed to add asset")
	}

	created, err := a.api.CreateAsset(ctx, id, in)
	if err != nil {
		return nil, a.report(err, "Failed to add asset")
	}
	a.notify(LevelSuccess, "Asset added successfully")
	return created, a.Load(ctx)
}

// Update replaces a holding's editable fields.
func (a *Assets) Update(ctx context.Context, id int64, in finbuddy.Asset) (*finbuddy.Asset, error) {
	if err := ValidateAsset(in); err != nil {
		return nil, a.report(err, "Failed to update asset")
	}
	updated, err := a.api.UpdateAsset(ctx, id, in)
	if err != nil {
		return nil, a.report(err, "Failed to update asset")
	}
	a.notify(LevelSuccess, "Asset updated successfully")
	return updated, a.Load(ctx)
}

// Delete removes a holding after confirmation.
func (a *Assets) Delete(ctx context.Context, id int64) error {
	if !a.confirm("Are you sure you want to delete this asset?") {
		return ErrCancelled
	}
	if err := a.api.DeleteAsset(ctx, id); err != nil {
		return a.report(err, "Failed to delete asset")
	}
	a.notify(LevelSuccess, "Asset deleted successfully")
	return a.Load(ctx)
}

func (a *Assets) find(id int64) (finbuddy.Asset, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, as := range a.assets {
		if as.ID == id {
			return as, true
		}
	}
	return finbuddy.Asset{}, false
}

// Sell sells part or all of a loaded holding.
func (a *Assets) Sell(ctx context.Context, id, quantity int64) error {
	held, ok := a.find(id)
	if !ok {
		return a.report(fmt.Errorf("asset %d not loaded", id), "Failed to sell asset")
	}
	if quantity <= 0 || quantity > held.Quantity {
		return a.report(invalid("quantity must be between 1 and %d", held.Quantity), "Failed to sell asset")
	}

	if err := a.api.SellAsset(ctx, id, quantity); err != nil {
		return a.report(err, "Failed to sell asset")
	}
	a.notify(LevelSuccess, fmt.Sprintf("Sold %d units of %s", quantity, held.DisplaySymbol()))
	return a.Load(ctx)
}

// UpdatePrice sets a holding's current price. The table shows the new price
// immediately and reverts if the backend rejects it.
func (a *Assets) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	if price.Sign() <= 0 {
		return a.report(invalid("price must be greater than zero"), "Failed to update price")
	}

	before, ok := a.find(id)
	if !ok {
		return a.report(fmt.Errorf("asset %d not loaded", id), "Failed to update price")
	}
	patched := before
	patched.CurrentPrice = price
	patched.CurrentValue = price.Mul(decimal.NewFromInt(patched.Quantity))
	a.replace(patched)

	updated, err := a.api.UpdateAssetPrice(ctx, id, price)
	if err != nil {
		a.replace(before)
		return a.report(err, "Failed to update price")
	}
	a.replace(*updated)
	return nil
}

func (a *Assets) replace(as finbuddy.Asset) {
	a.mu.Lock()
	for i := range a.assets {
		if a.assets[i].ID == as.ID {
			a.assets[i] = as
		}
	}
	a.mu.Unlock()
	a.render()
}

// Close stops the pending search.
func (a *Assets) Close() {
	a.search.Stop()
}
