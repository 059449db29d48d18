package controller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/internal/schedule"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// WishlistAPI is the part of the gateway the wishlist page needs.
type WishlistAPI interface {
	ListWishlist(ctx context.Context, portfolioID int64) ([]finbuddy.WishlistItem, error)
	GetWishlistSummary(ctx context.Context, portfolioID int64) (*finbuddy.WishlistSummary, error)
	AddWishlistItem(ctx context.Context, portfolioID int64, req finbuddy.AddWishlistItemRequest) (*finbuddy.WishlistItem, error)
	UpdateWishlistItem(ctx context.Context, portfolioID, itemID int64, upd finbuddy.WishlistUpdate) (*finbuddy.WishlistItem, error)
	DeleteWishlistItem(ctx context.Context, portfolioID, itemID int64) error
	RefreshWishlistPrices(ctx context.Context, portfolioID int64) ([]finbuddy.WishlistItem, error)
	Search(ctx context.Context, kind finbuddy.SearchKind, query, assetType string) ([]finbuddy.SearchResult, error)
	CreateAsset(ctx context.Context, portfolioID int64, in finbuddy.Asset) (*finbuddy.Asset, error)
}

// Wishlist sort keys.
const (
	SortByName   = "name"
	SortByPrice  = "price"
	SortByChange = "change"
	SortByAdded  = "added"
)

// Wishlist manages watched symbols and their price alerts.
type Wishlist struct {
	page
	api    WishlistAPI
	poller *schedule.Poller
	search *schedule.Debouncer[string]

	items      []finbuddy.WishlistItem
	summary    finbuddy.WishlistSummary
	filter     string
	category   finbuddy.WishlistCategory
	sortBy     string
	searchKind finbuddy.SearchKind
	query      string
	results    []finbuddy.SearchResult
	updated    time.Time
}

// NewWishlist creates the wishlist controller. interval is the silent price
// refresh period; zero disables it.
func NewWishlist(api WishlistAPI, interval time.Duration, deps Deps) *Wishlist {
	w := &Wishlist{api: api, searchKind: finbuddy.SearchStocks}
	w.init("wishlist", deps)
	w.search = schedule.NewDebouncer(w.deps.Debounce, func(q string) {
		w.deps.background(func(ctx context.Context) { _ = w.SearchNow(ctx, q) })
	})
	if interval > 0 {
		w.poller = schedule.NewPoller(interval, func(ctx context.Context) {
			if w.PortfolioID() != 0 {
				w.silentRefresh(ctx)
			}
		})
	}
	w.follow(func(ctx context.Context) error {
		if err := prefs.SetID(w.deps.Session, prefs.KeySessionPortfolio, w.PortfolioID()); err != nil {
			w.log.Warn().Err(err).Msg("failed to store wishlist portfolio")
		}
		return w.Load(ctx)
	})
	return w
}

// Init picks the portfolio remembered for this session, falling back to the
// active portfolio, and loads it.
func (w *Wishlist) Init(ctx context.Context) error {
	id, ok := prefs.ID(w.deps.Session, prefs.KeySessionPortfolio)
	if !ok || id == 0 {
		id, _ = prefs.ID(w.deps.Prefs, prefs.KeyActivePortfolio)
	}
	w.setPortfolio(id)
	return w.Load(ctx)
}

// Load fetches the items and the summary.
func (w *Wishlist) Load(ctx context.Context) error {
	t := w.begin()
	if t.portfolioID == 0 {
		w.idle(t, func() {
			w.items = nil
			w.summary = finbuddy.WishlistSummary{}
		})
		return nil
	}

	items, err := w.api.ListWishlist(ctx, t.portfolioID)
	if err != nil {
		w.fail(t, err, "Failed to load wishlist")
		return err
	}
	summary := w.fetchSummary(ctx, t.portfolioID, items)
	w.finish(t, func() {
		w.items = items
		w.summary = summary
		w.updated = time.Now()
	})
	return nil
}

// fetchSummary falls back to counting locally when the endpoint fails.
func (w *Wishlist) fetchSummary(ctx context.Context, portfolioID int64, items []finbuddy.WishlistItem) finbuddy.WishlistSummary {
	s, err := w.api.GetWishlistSummary(ctx, portfolioID)
	if err == nil {
		return *s
	}
	w.log.Warn().Err(err).Msg("wishlist summary unavailable, counting locally")
	return Summarize(items)
}

// Summarize counts items the way the summary endpoint does.
func Summarize(items []finbuddy.WishlistItem) finbuddy.WishlistSummary {
	s := finbuddy.WishlistSummary{TotalWatchlist: len(items)}
	for _, it := range items {
		switch it.ChangePercentage.Sign() {
		case 1:
			s.GainersCount++
		case -1:
			s.LosersCount++
		}
		if it.AlertEnabled {
			s.AlertsCount++
		}
	}
	return s
}

// Summary returns the counters shown above the table.
func (w *Wishlist) Summary() finbuddy.WishlistSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summary
}

// Updated returns when prices were last loaded.
func (w *Wishlist) Updated() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updated
}

// Items returns every loaded item in load order.
func (w *Wishlist) Items() []finbuddy.WishlistItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]finbuddy.WishlistItem(nil), w.items...)
}

// Filter narrows the rows by text and category. An empty category matches
// all.
func (w *Wishlist) Filter(text string, category finbuddy.WishlistCategory) {
	w.mu.Lock()
	w.filter = strings.ToLower(strings.TrimSpace(text))
	w.category = category
	w.mu.Unlock()
	w.render()
}

// SortBy orders the rows by name, price, change or added date.
func (w *Wishlist) SortBy(key string) error {
	switch key {
	case SortByName, SortByPrice, SortByChange, SortByAdded, "":
	default:
		return invalid("unknown sort key %q", key)
	}
	w.mu.Lock()
	w.sortBy = key
	w.mu.Unlock()
	w.render()
	return nil
}

// Rows returns the filtered and sorted items.
func (w *Wishlist) Rows() []finbuddy.WishlistItem {
	w.mu.Lock()
	var rows []finbuddy.WishlistItem
	for _, it := range w.items {
		if w.filter != "" &&
			!strings.Contains(strings.ToLower(it.Symbol), w.filter) &&
			!strings.Contains(strings.ToLower(it.Name), w.filter) {
			continue
		}
		if w.category != "" && !strings.EqualFold(string(it.Category), string(w.category)) {
			continue
		}
		rows = append(rows, it)
	}
	key := w.sortBy
	w.mu.Unlock()

	sort.SliceStable(rows, func(i, j int) bool {
		switch key {
		case SortByName:
			return rows[i].Symbol < rows[j].Symbol
		case SortByPrice:
			return rows[i].CurrentPrice.GreaterThan(rows[j].CurrentPrice)
		case SortByChange:
			return rows[i].ChangePercentage.GreaterThan(rows[j].ChangePercentage)
		case SortByAdded:
			return rows[i].AddedAt > rows[j].AddedAt
		}
		return false
	})
	return rows
}

func (w *Wishlist) requirePortfolio() (int64, error) {
	id := w.PortfolioID()
	if id == 0 {
		w.notify(LevelWarning, "Please select a portfolio first")
		return 0, ErrNoPortfolio
	}
	return id, nil
}

// Add watches a new symbol. A target price turns its alert on.
func (w *Wishlist) Add(ctx context.Context, req finbuddy.AddWishlistItemRequest) (*finbuddy.WishlistItem, error) {
	id, err := w.requirePortfolio()
	if err != nil {
		return nil, err
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return nil, w.report(invalid("symbol is required"), "Failed to add to wishlist")
	}
	if req.Category == "" {
		return nil, w.report(invalid("category is required"), "Failed to add to wishlist")
	}
	if req.TargetPrice.Valid && req.TargetPrice.Decimal.Sign() <= 0 {
		return nil, w.report(invalid("target price must be greater than zero"), "Failed to add to wishlist")
	}

	item, err := w.api.AddWishlistItem(ctx, id, req)
	if err != nil {
		return nil, w.report(err, "Failed to add to wishlist")
	}
	item.AlertEnabled = req.TargetPrice.Valid
	w.notify(LevelSuccess, "Added to wishlist")
	return item, w.Load(ctx)
}

// UpdateTargetPrice sets or clears an item's alert price. Changing the target
// resets a triggered alert.
func (w *Wishlist) UpdateTargetPrice(ctx context.Context, itemID int64, target decimal.NullDecimal) error {
	id, err := w.requirePortfolio()
	if err != nil {
		return err
	}
	if target.Valid && target.Decimal.Sign() <= 0 {
		return w.report(invalid("target price must be greater than zero"), "Failed to update target price")
	}

	if _, err := w.api.UpdateWishlistItem(ctx, id, itemID, finbuddy.WishlistUpdate{TargetPrice: target}); err != nil {
		return w.report(err, "Failed to update target price")
	}

	var code string
	w.mu.Lock()
	for i := range w.items {
		if w.items[i].ID == itemID {
			w.items[i].TargetPrice = target
			w.items[i].AlertEnabled = target.Valid
			w.items[i].AlertTriggered = false
			code = w.items[i].Currency
		}
	}
	items := append([]finbuddy.WishlistItem(nil), w.items...)
	w.mu.Unlock()

	summary := w.fetchSummary(ctx, id, items)
	w.mu.Lock()
	w.summary = summary
	w.mu.Unlock()
	w.render()

	if target.Valid {
		w.notify(LevelSuccess, "Alert set: You'll be notified when price reaches "+itemPrice(target.Decimal, code))
	} else {
		w.notify(LevelInfo, "Price alert removed")
	}
	return nil
}

// Delete stops watching an item after confirmation.
func (w *Wishlist) Delete(ctx context.Context, itemID int64) error {
	id, err := w.requirePortfolio()
	if err != nil {
		return err
	}
	if !w.confirm("Remove this item from your wishlist?") {
		return ErrCancelled
	}
	if err := w.api.DeleteWishlistItem(ctx, id, itemID); err != nil {
		return w.report(err, "Failed to remove")
	}
	if err := w.Load(ctx); err != nil {
		return err
	}
	w.notify(LevelSuccess, "Removed from wishlist")
	return nil
}

// Refresh asks the backend for fresh prices.
func (w *Wishlist) Refresh(ctx context.Context) error {
	id, err := w.requirePortfolio()
	if err != nil {
		return err
	}

	t := w.begin()
	items, err := w.api.RefreshWishlistPrices(ctx, id)
	if err != nil {
		w.fail(t, err, "Failed to refresh prices")
		return err
	}
	summary := w.fetchSummary(ctx, id, items)
	if w.finish(t, func() {
		w.items = items
		w.summary = summary
		w.updated = time.Now()
	}) {
		w.notify(LevelSuccess, "Prices refreshed")
	}
	return nil
}

// silentRefresh updates prices without a loading state or error toast, then
// announces triggered alerts.
func (w *Wishlist) silentRefresh(ctx context.Context) {
	t := w.beginSilent()
	items, err := w.api.RefreshWishlistPrices(ctx, t.portfolioID)
	if err != nil {
		w.log.Warn().Err(err).Msg("silent refresh failed")
		return
	}
	summary := w.fetchSummary(ctx, t.portfolioID, items)
	if w.finish(t, func() {
		w.items = items
		w.summary = summary
		w.updated = time.Now()
	}) {
		w.CheckAlerts()
	}
}

// CheckAlerts notifies once per item whose enabled alert has triggered.
func (w *Wishlist) CheckAlerts() int {
	n := 0
	for _, it := range w.Items() {
		if !it.AlertTriggered || !it.AlertEnabled {
			continue
		}
		n++
		w.notify(LevelSuccess, fmt.Sprintf("Alert: %s has reached your target price of %s!",
			it.Symbol, itemPrice(it.TargetPrice.Decimal, it.Currency)))
	}
	return n
}

func itemPrice(amount decimal.Decimal, code string) string {
	if code == "" {
		code = currency.Base
	}
	return currency.FormatAmount(amount, code)
}

// WishlistSearchKinds are the lookups the add form offers, in menu order.
var WishlistSearchKinds = []finbuddy.SearchKind{
	finbuddy.SearchStocks,
	finbuddy.SearchBonds,
	finbuddy.SearchMutualFunds,
	finbuddy.SearchSIPs,
	finbuddy.SearchAll,
}

// SearchKind returns the lookup the add form uses.
func (w *Wishlist) SearchKind() finbuddy.SearchKind {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.searchKind
}

// SetSearchType selects which market search the add form uses and reruns
// the current query against it.
func (w *Wishlist) SetSearchType(kind finbuddy.SearchKind) {
	w.mu.Lock()
	w.searchKind = kind
	q := w.query
	w.mu.Unlock()
	if len(q) >= MinSearchLength {
		w.search.Call(q)
	}
}

// Search schedules a symbol lookup for the add form.
func (w *Wishlist) Search(query string) {
	query = strings.TrimSpace(query)
	w.mu.Lock()
	w.query = query
	if len(query) < MinSearchLength {
		w.results = nil
	}
	w.mu.Unlock()
	if len(query) < MinSearchLength {
		w.search.Stop()
		w.render()
		return
	}
	w.search.Call(query)
}

// SearchNow runs the lookup for the selected search type immediately.
func (w *Wishlist) SearchNow(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchLength {
		return nil
	}
	w.mu.Lock()
	if w.query == "" {
		w.query = query
	}
	kind := w.searchKind
	w.mu.Unlock()
	if kind == "" {
		kind = finbuddy.SearchAll
	}

	results, err := w.api.Search(ctx, kind, query, "")
	if err != nil {
		w.log.Warn().Err(err).Str("query", query).Msg("wishlist search failed")
		return err
	}
	if len(results) > 10 {
		results = results[:10]
	}

	w.mu.Lock()
	if w.query != query {
		w.mu.Unlock()
		return nil
	}
	w.results = results
	w.mu.Unlock()
	w.render()
	return nil
}

// Results returns the add form's search hits.
func (w *Wishlist) Results() []finbuddy.SearchResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]finbuddy.SearchResult(nil), w.results...)
}

// BuyNow hands symbol over to the asset form.
func (w *Wishlist) BuyNow(symbol string) error {
	return w.deps.Session.Set(prefs.KeyPrefillSymbol, strings.ToUpper(strings.TrimSpace(symbol)))
}

// AddToPortfolio buys a watched item at purchasePrice and optionally stops
// watching it.
func (w *Wishlist) AddToPortfolio(ctx context.Context, itemID, quantity int64, purchasePrice decimal.Decimal, remove bool) (*finbuddy.Asset, error) {
	id, err := w.requirePortfolio()
	if err != nil {
		return nil, err
	}

	var item *finbuddy.WishlistItem
	for _, it := range w.Items() {
		if it.ID == itemID {
			it := it
			item = &it
			break
		}
	}
	if item == nil {
		return nil, w.report(fmt.Errorf("wishlist item %d not loaded", itemID), "Failed to add to portfolio")
	}

	asset := finbuddy.Asset{
		AssetType:     assetTypeFor(item.Category),
		Name:          item.Name,
		Symbol:        item.Symbol,
		Quantity:      quantity,
		PurchasePrice: purchasePrice,
		CurrentPrice:  item.CurrentPrice,
		PurchaseDate:  time.Now().Format(time.DateOnly),
		Currency:      item.Currency,
	}
	if asset.Name == "" {
		asset.Name = item.Symbol
	}
	if asset.Currency == "" {
		asset.Currency = currency.Base
	}
	if err := ValidateAsset(asset); err != nil {
		return nil, w.report(err, "Failed to add to portfolio")
	}

	created, err := w.api.CreateAsset(ctx, id, asset)
	if err != nil {
		return nil, w.report(err, "Failed to add to portfolio")
	}
	w.notify(LevelSuccess, item.Symbol+" added to portfolio!")

	if remove {
		if err := w.api.DeleteWishlistItem(ctx, id, itemID); err != nil {
			return created, w.report(err, "Failed to remove")
		}
		return created, w.Load(ctx)
	}
	return created, nil
}

func assetTypeFor(c finbuddy.WishlistCategory) finbuddy.AssetType {
	switch c {
	case finbuddy.CategoryBond:
		return finbuddy.AssetBond
	case finbuddy.CategoryMutualFund:
		return finbuddy.AssetMutualFund
	default:
		return finbuddy.AssetStock
	}
}

// Start begins the silent price refresh.
func (w *Wishlist) Start(ctx context.Context) {
	if w.poller != nil {
		w.poller.Start(ctx)
	}
}

// Stop ends the price refresh and any pending search.
func (w *Wishlist) Stop() {
	if w.poller != nil {
		w.poller.Stop()
	}
	w.search.Stop()
}
