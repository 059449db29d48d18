package controller

import (
	"context"
	"time"
)

// API is the whole backend surface. *finbuddy.Client implements it.
type API interface {
	NavbarAPI
	PortfoliosAPI
	DashboardAPI
	AssetsAPI
	AnalyticsAPI
	MarketAPI
	WishlistAPI
	BenchmarksAPI
	ReportsAPI
}

// Intervals are the polling periods of the live pages. Zero disables a
// poller.
type Intervals struct {
	Market   time.Duration
	Wishlist time.Duration
}

// App wires every page to one bus and one set of stores, the way the
// interactive UI runs them side by side.
type App struct {
	Deps Deps

	Navbar     *Navbar
	Portfolios *Portfolios
	Dashboard  *Dashboard
	Assets     *Assets
	Analytics  *Analytics
	Market     *Market
	Wishlist   *Wishlist
	Benchmarks *Benchmarks
	Reports    *Reports
}

// NewApp creates all page controllers sharing deps.
func NewApp(api API, iv Intervals, deps Deps) *App {
	deps = deps.withDefaults()
	nav := NewNavbar(api, deps)
	return &App{
		Deps:       deps,
		Navbar:     nav,
		Portfolios: NewPortfolios(api, nav, deps),
		Dashboard:  NewDashboard(api, deps),
		Assets:     NewAssets(api, deps),
		Analytics:  NewAnalytics(api, deps),
		Market:     NewMarket(api, iv.Market, deps),
		Wishlist:   NewWishlist(api, iv.Wishlist, deps),
		Benchmarks: NewBenchmarks(api, deps),
		Reports:    NewReports(api, deps),
	}
}

// OnRender registers fn on every page.
func (a *App) OnRender(fn func()) {
	a.Navbar.OnRender(fn)
	a.Portfolios.OnRender(fn)
	a.Dashboard.OnRender(fn)
	a.Assets.OnRender(fn)
	a.Analytics.OnRender(fn)
	a.Market.OnRender(fn)
	a.Wishlist.OnRender(fn)
	a.Benchmarks.OnRender(fn)
	a.Reports.OnRender(fn)
}

// Start selects the initial portfolio, which loads every page through the
// bus, and starts the pollers. When the portfolio list cannot be loaded the
// wishlist still opens the portfolio remembered for this session.
func (a *App) Start(ctx context.Context) error {
	err := a.Navbar.Init(ctx)
	if err != nil && a.Wishlist.PortfolioID() == 0 {
		_ = a.Wishlist.Init(ctx)
	}
	a.Market.Start(ctx)
	a.Wishlist.Start(ctx)
	return err
}

// Close stops pollers and pending searches and releases every chart.
func (a *App) Close() {
	a.Market.Stop()
	a.Wishlist.Stop()
	a.Navbar.Close()
	a.Assets.Close()
	for _, canvas := range a.Deps.Charts.Canvases() {
		a.Deps.Charts.Destroy(canvas)
	}
}
