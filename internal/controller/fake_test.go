package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finbuddy/fin/internal/chart"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/events"
	"github.com/finbuddy/fin/internal/prefs"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

var errBackend = errors.New("backend unavailable")

// fakeAPI is an in-memory backend satisfying every controller API.
type fakeAPI struct {
	mu sync.Mutex

	portfolios []finbuddy.Portfolio
	nextID     int64
	dashboards map[int64]*finbuddy.DashboardSummary
	assets     map[int64][]finbuddy.Asset
	quotes     map[string]finbuddy.Quote
	wishlist   map[int64][]finbuddy.WishlistItem
	benchmarks map[int64][]finbuddy.Benchmark
	history    []finbuddy.HistoryPoint
	rates      map[string]decimal.Decimal
	results    []finbuddy.SearchResult

	errs    map[string]error
	calls   []string
	callIDs []int64

	searches []string
	updates  []finbuddy.WishlistUpdate
	created  []finbuddy.Asset

	// reportBody, when set, replaces the PDF body.
	reportBody io.Reader

	// gate, when set, is called before a portfolio scoped read returns.
	gate func(method string, portfolioID int64)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:     100,
		dashboards: map[int64]*finbuddy.DashboardSummary{},
		assets:     map[int64][]finbuddy.Asset{},
		quotes:     map[string]finbuddy.Quote{},
		wishlist:   map[int64][]finbuddy.WishlistItem{},
		benchmarks: map[int64][]finbuddy.Benchmark{},
		rates:      map[string]decimal.Decimal{},
		errs:       map[string]error{},
	}
}

func (f *fakeAPI) withPortfolio(id int64, name string, total string) *fakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portfolios = append(f.portfolios, finbuddy.Portfolio{ID: id, Name: name, BaseCurrency: "USD"})
	f.dashboards[id] = &finbuddy.DashboardSummary{
		PortfolioID:   id,
		PortfolioName: name,
		TotalValue:    decimal.RequireFromString(total),
	}
	return f
}

func (f *fakeAPI) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakeAPI) record(method string, portfolioID int64) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.callIDs = append(f.callIDs, portfolioID)
	err := f.errs[method]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		gate(method, portfolioID)
	}
	return err
}

func (f *fakeAPI) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

// calledFor counts calls of method scoped to portfolioID.
func (f *fakeAPI) calledFor(method string, portfolioID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i, c := range f.calls {
		if c == method && f.callIDs[i] == portfolioID {
			n++
		}
	}
	return n
}

func (f *fakeAPI) ListPortfolios(context.Context) ([]finbuddy.Portfolio, error) {
	if err := f.record("ListPortfolios", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finbuddy.Portfolio(nil), f.portfolios...), nil
}

func (f *fakeAPI) CreatePortfolio(_ context.Context, in finbuddy.PortfolioInput) (*finbuddy.Portfolio, error) {
	if err := f.record("CreatePortfolio", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := finbuddy.Portfolio{ID: f.nextID, Name: in.Name, Description: in.Description, BaseCurrency: in.BaseCurrency}
	f.portfolios = append(f.portfolios, p)
	f.dashboards[p.ID] = &finbuddy.DashboardSummary{PortfolioID: p.ID, PortfolioName: p.Name}
	return &p, nil
}

func (f *fakeAPI) UpdatePortfolio(_ context.Context, id int64, in finbuddy.PortfolioInput) (*finbuddy.Portfolio, error) {
	if err := f.record("UpdatePortfolio", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.portfolios {
		if f.portfolios[i].ID == id {
			f.portfolios[i].Name = in.Name
			p := f.portfolios[i]
			return &p, nil
		}
	}
	return nil, &finbuddy.APIError{StatusCode: 404, Message: "Portfolio not found"}
}

func (f *fakeAPI) DeletePortfolio(_ context.Context, id int64) error {
	if err := f.record("DeletePortfolio", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.portfolios[:0]
	for _, p := range f.portfolios {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	f.portfolios = kept
	return nil
}

func (f *fakeAPI) RecalculatePortfolio(_ context.Context, id int64) error {
	return f.record("RecalculatePortfolio", id)
}

func (f *fakeAPI) GetDashboard(_ context.Context, id int64) (*finbuddy.DashboardSummary, error) {
	if err := f.record("GetDashboard", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.dashboards[id]
	if !ok {
		return nil, &finbuddy.APIError{StatusCode: 404, Message: fmt.Sprintf("Portfolio not found with id: %d", id)}
	}
	cp := *d
	return &cp, nil
}

func (f *fakeAPI) GetRiskAnalysis(_ context.Context, id int64) (finbuddy.RiskAnalysis, error) {
	if err := f.record("GetRiskAnalysis", id); err != nil {
		return nil, err
	}
	return finbuddy.RiskAnalysis{"riskLevel": "MEDIUM"}, nil
}

func (f *fakeAPI) GetPortfolioHistory(_ context.Context, id int64, start, _ string) ([]finbuddy.HistoryPoint, error) {
	if err := f.record("GetPortfolioHistory:"+start, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finbuddy.HistoryPoint(nil), f.history...), nil
}

func (f *fakeAPI) ListAssets(_ context.Context, id int64) ([]finbuddy.Asset, error) {
	if err := f.record("ListAssets", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finbuddy.Asset(nil), f.assets[id]...), nil
}

func (f *fakeAPI) CreateAsset(_ context.Context, portfolioID int64, in finbuddy.Asset) (*finbuddy.Asset, error) {
	if err := f.record("CreateAsset", portfolioID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	in.ID = f.nextID
	f.assets[portfolioID] = append(f.assets[portfolioID], in)
	f.created = append(f.created, in)
	return &in, nil
}

func (f *fakeAPI) UpdateAsset(_ context.Context, id int64, in finbuddy.Asset) (*finbuddy.Asset, error) {
	if err := f.record("UpdateAsset", 0); err != nil {
		return nil, err
	}
	in.ID = id
	return &in, nil
}

func (f *fakeAPI) DeleteAsset(_ context.Context, id int64) error {
	if err := f.record("DeleteAsset", 0); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, list := range f.assets {
		kept := list[:0]
		for _, a := range list {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		f.assets[pid] = kept
	}
	return nil
}

func (f *fakeAPI) SellAsset(_ context.Context, id int64, quantity int64) error {
	if err := f.record("SellAsset", 0); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.assets {
		for i := range list {
			if list[i].ID == id {
				list[i].Quantity -= quantity
			}
		}
	}
	return nil
}

func (f *fakeAPI) SearchAssets(_ context.Context, query string) ([]finbuddy.Asset, error) {
	if err := f.record("SearchAssets", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []finbuddy.Asset
	for _, list := range f.assets {
		for _, a := range list {
			if strings.Contains(strings.ToLower(a.Name), strings.ToLower(query)) {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (f *fakeAPI) UpdateAssetPrice(_ context.Context, id int64, price decimal.Decimal) (*finbuddy.Asset, error) {
	if err := f.record("UpdateAssetPrice", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.assets {
		for i := range list {
			if list[i].ID == id {
				list[i].CurrentPrice = price
				list[i].CurrentValue = price.Mul(decimal.NewFromInt(list[i].Quantity))
				a := list[i]
				return &a, nil
			}
		}
	}
	return nil, &finbuddy.APIError{StatusCode: 404, Message: "Asset not found"}
}

func (f *fakeAPI) GetBatchQuotes(_ context.Context, symbols []string) ([]finbuddy.Quote, error) {
	if err := f.record("GetBatchQuotes", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []finbuddy.Quote
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetExchangeRate(_ context.Context, from, to string) (*finbuddy.ExchangeRate, error) {
	if err := f.record("GetExchangeRate", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rate, ok := f.rates[to]
	if !ok {
		return nil, errBackend
	}
	return &finbuddy.ExchangeRate{From: from, To: to, Rate: rate}, nil
}

func (f *fakeAPI) Search(_ context.Context, kind finbuddy.SearchKind, query, _ string) ([]finbuddy.SearchResult, error) {
	if err := f.record("Search:"+string(kind), 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	return append([]finbuddy.SearchResult(nil), f.results...), nil
}

func (f *fakeAPI) ListWishlist(_ context.Context, id int64) ([]finbuddy.WishlistItem, error) {
	if err := f.record("ListWishlist", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finbuddy.WishlistItem(nil), f.wishlist[id]...), nil
}

func (f *fakeAPI) GetWishlistSummary(_ context.Context, id int64) (*finbuddy.WishlistSummary, error) {
	if err := f.record("GetWishlistSummary", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Summarize(f.wishlist[id])
	return &s, nil
}

func (f *fakeAPI) AddWishlistItem(_ context.Context, id int64, req finbuddy.AddWishlistItemRequest) (*finbuddy.WishlistItem, error) {
	if err := f.record("AddWishlistItem", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := finbuddy.WishlistItem{
		ID:           f.nextID,
		Symbol:       req.Symbol,
		Category:     req.Category,
		TargetPrice:  req.TargetPrice,
		AlertEnabled: req.TargetPrice.Valid,
	}
	f.wishlist[id] = append(f.wishlist[id], item)
	return &item, nil
}

func (f *fakeAPI) UpdateWishlistItem(_ context.Context, id, itemID int64, upd finbuddy.WishlistUpdate) (*finbuddy.WishlistItem, error) {
	if err := f.record("UpdateWishlistItem", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	for _, it := range f.wishlist[id] {
		if it.ID == itemID {
			return &it, nil
		}
	}
	return nil, &finbuddy.APIError{StatusCode: 404, Message: "Wishlist item not found"}
}

func (f *fakeAPI) DeleteWishlistItem(_ context.Context, id, itemID int64) error {
	if err := f.record("DeleteWishlistItem", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.wishlist[id][:0]
	for _, it := range f.wishlist[id] {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	f.wishlist[id] = kept
	return nil
}

func (f *fakeAPI) RefreshWishlistPrices(_ context.Context, id int64) ([]finbuddy.WishlistItem, error) {
	if err := f.record("RefreshWishlistPrices", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finbuddy.WishlistItem(nil), f.wishlist[id]...), nil
}

func (f *fakeAPI) ListBenchmarks(_ context.Context, id int64) ([]finbuddy.Benchmark, error) {
	if err := f.record("ListBenchmarks", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finbuddy.Benchmark(nil), f.benchmarks[id]...), nil
}

func (f *fakeAPI) AddBenchmark(_ context.Context, id int64, req finbuddy.BenchmarkRequest) (*finbuddy.Benchmark, error) {
	if err := f.record("AddBenchmark", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b := finbuddy.Benchmark{ID: f.nextID, Symbol: req.Symbol, Name: req.Name}
	f.benchmarks[id] = append(f.benchmarks[id], b)
	return &b, nil
}

func (f *fakeAPI) DeleteBenchmark(_ context.Context, id, benchmarkID int64) error {
	if err := f.record("DeleteBenchmark", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.benchmarks[id][:0]
	for _, b := range f.benchmarks[id] {
		if b.ID != benchmarkID {
			kept = append(kept, b)
		}
	}
	f.benchmarks[id] = kept
	return nil
}

func (f *fakeAPI) RefreshBenchmarks(ctx context.Context, id int64) ([]finbuddy.Benchmark, error) {
	if err := f.record("RefreshBenchmarks", id); err != nil {
		return nil, err
	}
	return f.ListBenchmarks(ctx, id)
}

func (f *fakeAPI) DownloadReportPDF(_ context.Context, id int64) (*finbuddy.Blob, error) {
	if err := f.record("DownloadReportPDF", id); err != nil {
		return nil, err
	}
	body := "%PDF-1.4 report"
	var r io.Reader = strings.NewReader(body)
	f.mu.Lock()
	if f.reportBody != nil {
		r = f.reportBody
	}
	f.mu.Unlock()
	return &finbuddy.Blob{
		Body:          io.NopCloser(r),
		ContentType:   "application/pdf",
		ContentLength: int64(len(body)),
	}, nil
}

func (f *fakeAPI) SendReportEmail(_ context.Context, id int64, _ string) error {
	return f.record("SendReportEmail", id)
}

// toasts records notifications.
type toasts struct {
	mu   sync.Mutex
	list []string
}

func (t *toasts) Notify(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append(t.list, level+": "+msg)
}

func (t *toasts) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.list...)
}

type harness struct {
	api     *fakeAPI
	deps    Deps
	toasts  *toasts
	prefs   *prefs.MemoryStore
	session *prefs.MemoryStore
	confirm bool
}

// newHarness wires deps that run every load inline.
func newHarness(api *fakeAPI) *harness {
	h := &harness{
		api:     api,
		toasts:  &toasts{},
		prefs:   prefs.NewMemoryStore(),
		session: prefs.NewMemoryStore(),
		confirm: true,
	}
	log := zerolog.Nop()
	h.deps = Deps{
		Bus:       events.NewBus(log),
		Prefs:     h.prefs,
		Session:   h.session,
		Currency:  currency.NewConverter(api, log),
		Charts:    chart.NewRegistry(),
		Notifier:  h.toasts,
		Confirmer: ConfirmFunc(func(string) bool { return h.confirm }),
		Logger:    log,
		Async:     func(fn func()) { fn() },
		Debounce:  5 * time.Millisecond,
	}
	return h
}
