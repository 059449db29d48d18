package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

var sortKeys = []string{controller.SortByName, controller.SortByPrice, controller.SortByChange, controller.SortByAdded}

func nextSort(current string) string {
	for i, k := range sortKeys {
		if k == current {
			return sortKeys[(i+1)%len(sortKeys)]
		}
	}
	return sortKeys[0]
}

func nextRange(current controller.TimeRange) controller.TimeRange {
	for i, r := range controller.TimeRanges {
		if r == current {
			return controller.TimeRanges[(i+1)%len(controller.TimeRanges)]
		}
	}
	return controller.TimeRanges[0]
}

// refreshTables copies controller data into the tables. Row order is kept
// in the id slices so a selected row maps back to its item.
func (m *Model) refreshTables() {
	conv := m.app.Deps.Currency

	assets := m.app.Assets.Rows()
	rows := make([]table.Row, 0, len(assets))
	m.assetIDs = m.assetIDs[:0]
	for _, a := range assets {
		rows = append(rows, table.Row{
			a.Name,
			a.DisplaySymbol(),
			string(a.AssetType),
			strconv.FormatInt(a.Quantity, 10),
			conv.Format(a.CurrentPrice),
			conv.Format(a.CurrentValue),
			currency.FormatPercentage(a.GainLossPercentage),
		})
		m.assetIDs = append(m.assetIDs, a.ID)
	}
	m.assets.SetRows(rows)

	quotes := m.app.Market.Quotes()
	rows = make([]table.Row, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, table.Row{
			q.Symbol,
			conv.Format(q.Price),
			finbuddy.FormatGainLoss(conv.Convert(q.Change)),
			currency.FormatPercentage(q.ChangePercent),
			conv.Format(q.High),
			conv.Format(q.Low),
		})
	}
	m.market.SetRows(rows)

	items := m.app.Wishlist.Rows()
	rows = make([]table.Row, 0, len(items))
	m.wishlistIDs = m.wishlistIDs[:0]
	m.wishlistSymbols = m.wishlistSymbols[:0]
	for _, it := range items {
		code := it.Currency
		if code == "" {
			code = currency.Base
		}
		target := "-"
		if it.TargetPrice.Valid {
			target = currency.FormatAmount(it.TargetPrice.Decimal, code)
		}
		alert := ""
		if it.AlertEnabled && it.AlertTriggered {
			alert = "🔔"
		}
		rows = append(rows, table.Row{
			it.Symbol,
			string(it.Category),
			currency.FormatAmount(it.CurrentPrice, code),
			target,
			currency.FormatPercentage(it.ChangePercentage),
			alert,
		})
		m.wishlistIDs = append(m.wishlistIDs, it.ID)
		m.wishlistSymbols = append(m.wishlistSymbols, it.Symbol)
	}
	m.wishlist.SetRows(rows)
}

func (m Model) selectedAsset() (int64, bool) {
	i := m.assets.Cursor()
	if i < 0 || i >= len(m.assetIDs) {
		return 0, false
	}
	return m.assetIDs[i], true
}

func (m Model) selectedWishlistItem() (int64, bool) {
	i := m.wishlist.Cursor()
	if i < 0 || i >= len(m.wishlistIDs) {
		return 0, false
	}
	return m.wishlistIDs[i], true
}

type statusPage interface {
	State() controller.State
	Err() error
}

// status renders the loading or error line of a page. done is true when
// there is nothing else to show.
func status(p statusPage, what string, empty bool) (string, bool) {
	switch p.State() {
	case controller.StateUninitialized:
		return "Loading " + what + "...", true
	case controller.StateLoading:
		if empty {
			return "Loading " + what + "...", true
		}
	case controller.StateError:
		line := RedStyle.Render(fmt.Sprintf("Error: %v", p.Err())) + "\n" + LabelStyle.Render("Press 'r' to retry")
		return line + "\n\n", empty
	}
	return "", false
}

func noPortfolio(m Model) (string, bool) {
	if m.app.Navbar.Active() == nil && m.app.Navbar.State() == controller.StateReady {
		return LabelStyle.Render("No portfolios yet. Create one with: fin portfolio create NAME"), true
	}
	return "", false
}

func (m Model) dashboardView() string {
	if s, ok := noPortfolio(m); ok {
		return s
	}
	d := m.app.Dashboard
	cards := d.Cards()
	head, done := status(d, "dashboard", cards == nil)
	if done {
		return head
	}

	var b strings.Builder
	b.WriteString(head)

	tiles := make([]string, 0, len(cards))
	for _, c := range cards {
		body := LabelStyle.Render(c.Title) + "\n" + ValueStyle.Render(c.Value)
		if c.Change != "" {
			body += " " + signed(c.Positive).Render(c.Change)
		}
		tiles = append(tiles, CardStyle.Render(body))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tiles...))
	b.WriteString("\n\n")

	charts := m.app.Deps.Charts
	var panels []string
	for _, canvas := range []string{controller.CanvasAllocation, controller.CanvasTopPerformers} {
		if c := charts.Get(canvas); c != nil {
			panels = append(panels, lipgloss.NewStyle().MarginRight(4).Render(c.View()))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...))

	if bms := d.Benchmarks(); len(bms) > 0 {
		b.WriteString("\n\n" + TitleStyle.Render("Benchmarks") + "\n")
		for _, bm := range bms {
			fmt.Fprintf(&b, "%-12s %12s  %s\n",
				bm.Name,
				bm.CurrentValue.StringFixed(2),
				signed(bm.ChangePercentage.Sign() >= 0).Render(currency.FormatPercentage(bm.ChangePercentage)))
		}
	}
	return b.String()
}

func (m Model) assetsView() string {
	if s, ok := noPortfolio(m); ok {
		return s
	}
	a := m.app.Assets
	head, done := status(a, "assets", len(m.assetIDs) == 0)
	if done {
		return head
	}

	var b strings.Builder
	b.WriteString(head)
	if m.searching || m.search.Value() != "" {
		b.WriteString(InputStyle.Render(m.search.View()) + "\n")
	}
	if len(m.assetIDs) == 0 {
		b.WriteString(LabelStyle.Render("No assets"))
		return b.String()
	}
	b.WriteString(TitleStyle.Render("Holdings"))
	b.WriteString(LabelStyle.Render(fmt.Sprintf(" (%d)", len(m.assetIDs))))
	b.WriteString("\n")
	b.WriteString(m.assets.View())
	return b.String()
}

func (m Model) marketView() string {
	if s, ok := noPortfolio(m); ok {
		return s
	}
	mk := m.app.Market
	quotes := mk.Quotes()
	head, done := status(mk, "live prices", len(quotes) == 0)
	if done {
		return head
	}
	if mk.Empty() {
		return head + LabelStyle.Render(controller.EmptyMarketMessage)
	}
	return head + TitleStyle.Render("Live Prices") + "\n" + m.market.View()
}

func (m Model) wishlistView() string {
	if s, ok := noPortfolio(m); ok {
		return s
	}
	w := m.app.Wishlist
	head, done := status(w, "wishlist", len(m.wishlistIDs) == 0)
	if done {
		return head
	}

	s := w.Summary()
	var b strings.Builder
	b.WriteString(head)
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s  %s %s\n\n",
		LabelStyle.Render("Watching:"), ValueStyle.Render(strconv.Itoa(s.TotalWatchlist)),
		LabelStyle.Render("Gainers:"), GreenStyle.Render(strconv.Itoa(s.GainersCount)),
		LabelStyle.Render("Losers:"), RedStyle.Render(strconv.Itoa(s.LosersCount)),
		LabelStyle.Render("Alerts:"), WarningStyle.Render(strconv.Itoa(s.AlertsCount)))

	if len(m.wishlistIDs) == 0 {
		b.WriteString(LabelStyle.Render("Your wishlist is empty"))
		return b.String()
	}
	b.WriteString(m.wishlist.View())
	if u := w.Updated(); !u.IsZero() {
		b.WriteString("\n" + LabelStyle.Render("Updated: "+u.Format("3:04:05 PM")))
	}
	return b.String()
}

func (m Model) analyticsView() string {
	if s, ok := noPortfolio(m); ok {
		return s
	}
	a := m.app.Analytics
	metrics := a.Metrics()
	head, done := status(a, "analytics", metrics == nil)
	if done {
		return head
	}

	conv := m.app.Deps.Currency
	var b strings.Builder
	b.WriteString(head)
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s  %s %s\n",
		LabelStyle.Render("Value:"), ValueStyle.Render(conv.Format(metrics.TotalValue)),
		LabelStyle.Render("Invested:"), ValueStyle.Render(conv.Format(metrics.TotalInvested)),
		LabelStyle.Render("Returns:"), signed(metrics.TotalReturns.Sign() >= 0).Render(
			conv.Format(metrics.TotalReturns)+" ("+currency.FormatPercentage(metrics.ReturnsPct)+")"),
		LabelStyle.Render("CAGR:"), ValueStyle.Render(currency.FormatPercentage(metrics.CAGR)))
	if metrics.Best != nil && metrics.Worst != nil {
		fmt.Fprintf(&b, "%s %s %s  %s %s %s\n",
			LabelStyle.Render("Best:"), metrics.Best.DisplaySymbol(), GreenStyle.Render(currency.FormatPercentage(metrics.Best.GainLossPercentage)),
			LabelStyle.Render("Worst:"), metrics.Worst.DisplaySymbol(), RedStyle.Render(currency.FormatPercentage(metrics.Worst.GainLossPercentage)))
	}
	b.WriteString(LabelStyle.Render("Range: ") + ValueStyle.Render(string(a.Range())) + "\n\n")

	charts := m.app.Deps.Charts
	if c := charts.Get(controller.CanvasPerformance); c != nil {
		b.WriteString(c.View() + "\n\n")
	}
	var panels []string
	for _, canvas := range []string{controller.CanvasAssetTypes, controller.CanvasReturns} {
		if c := charts.Get(canvas); c != nil {
			panels = append(panels, lipgloss.NewStyle().MarginRight(4).Render(c.View()))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...))
	return b.String()
}
