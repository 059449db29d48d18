// Package tui is the interactive terminal UI. It hosts the page controllers
// side by side and redraws whenever one of them changes state.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/finbuddy/fin/internal/controller"
)

// View represents the current active view in the TUI.
type View int

const (
	ViewDashboard View = iota
	ViewAssets
	ViewMarket
	ViewWishlist
	ViewAnalytics
)

var viewNames = []string{"Dashboard", "Assets", "Market", "Wishlist", "Analytics"}

// Model is the main bubbletea model for the TUI.
type Model struct {
	ctx         context.Context
	app         *controller.App
	currentView View
	width       int
	height      int
	ready       bool

	assets      table.Model
	market      table.Model
	wishlist    table.Model
	assetIDs        []int64
	wishlistIDs     []int64
	wishlistSymbols []string

	searching bool
	search    textinput.Model

	find   *picker
	lookup *picker
	form   *assetForm

	sortKey  string
	confirm  *ConfirmMsg
	toast    *ToastMsg
	toastSeq int
	busy     bool
}

// New creates a new TUI model over app. ctx bounds actions started from key
// presses.
func New(ctx context.Context, app *controller.App) Model {
	ti := textinput.New()
	ti.Placeholder = "Search assets"
	ti.CharLimit = 40
	ti.Width = 30

	return Model{
		ctx:         ctx,
		app:         app,
		currentView: ViewDashboard,
		assets: newTable([]table.Column{
			{Title: "Name", Width: 20},
			{Title: "Symbol", Width: 10},
			{Title: "Type", Width: 12},
			{Title: "Qty", Width: 6},
			{Title: "Price", Width: 14},
			{Title: "Value", Width: 16},
			{Title: "G/L %", Width: 9},
		}),
		market: newTable([]table.Column{
			{Title: "Symbol", Width: 10},
			{Title: "Price", Width: 14},
			{Title: "Change", Width: 12},
			{Title: "Change %", Width: 10},
			{Title: "High", Width: 14},
			{Title: "Low", Width: 14},
		}),
		wishlist: newTable([]table.Column{
			{Title: "Symbol", Width: 10},
			{Title: "Category", Width: 12},
			{Title: "Price", Width: 14},
			{Title: "Target", Width: 14},
			{Title: "Change %", Width: 10},
			{Title: "Alert", Width: 6},
		}),
		search: ti,
	}
}

// Run starts the controllers and blocks until the user quits.
func Run(ctx context.Context, app *controller.App, bridge *Bridge, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(New(ctx, app), opts...)
	bridge.Bind(p.Send)
	app.OnRender(bridge.Render)
	defer app.Close()

	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.action(m.app.Start)
}

// action runs fn off the update loop. Controllers report failures as
// toasts, so the error only clears the busy flag.
func (m Model) action(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return ActionDoneMsg{Err: fn(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirm != nil {
			m.answer(msg)
			return m, nil
		}
		switch {
		case m.form != nil:
			return m.updateForm(msg)
		case m.find != nil:
			return m.updateFind(msg)
		case m.lookup != nil:
			return m.updateLookup(msg)
		case m.searching:
			return m.updateSearch(msg)
		}
		if cmd, handled := m.globalKey(msg); handled {
			return m, cmd
		}
		if cmd, handled := m.openKey(msg); handled {
			return m, cmd
		}
		if cmd := m.viewKey(msg); cmd != nil {
			m.busy = true
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		tableHeight := max(m.height-12, 3)
		m.assets.SetHeight(tableHeight)
		m.market.SetHeight(tableHeight)
		m.wishlist.SetHeight(tableHeight)

	case RenderMsg:
		m.refreshTables()

	case ToastMsg:
		m.toastSeq++
		m.toast = &msg
		seq := m.toastSeq
		cmds = append(cmds, tea.Tick(toastTTL, func(time.Time) tea.Msg { return clearToastMsg{seq: seq} }))

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}

	case ConfirmMsg:
		m.confirm = &msg

	case ActionDoneMsg:
		m.busy = false
		m.refreshTables()
	}

	var cmd tea.Cmd
	switch m.currentView {
	case ViewAssets:
		m.assets, cmd = m.assets.Update(msg)
	case ViewMarket:
		m.market, cmd = m.market.Update(msg)
	case ViewWishlist:
		m.wishlist, cmd = m.wishlist.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) answer(msg tea.KeyMsg) {
	switch msg.String() {
	case "y", "Y":
		m.confirm.Reply <- true
	case "n", "N", "esc":
		m.confirm.Reply <- false
	default:
		return
	}
	m.confirm = nil
}

func (m *Model) globalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	nav := m.app.Navbar
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit, true
	case "1", "2", "3", "4", "5":
		m.currentView = View(msg.String()[0] - '1')
		return nil, true
	case "p":
		return m.action(func(context.Context) error { return nav.Next() }), true
	case "c":
		return m.action(nav.NextCurrency), true
	case "r":
		// The wishlist refreshes prices, every other view recalculates.
		if m.currentView == ViewWishlist {
			return m.action(m.app.Wishlist.Refresh), true
		}
		return m.action(nav.Refresh), true
	}
	return nil, false
}

// openKey opens the search boxes and forms.
func (m *Model) openKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	switch {
	case key == "f":
		return m.openFind(), true
	case m.currentView == ViewAssets && key == "a":
		return m.openAssetForm(), true
	case m.currentView == ViewWishlist && key == "b":
		return m.buySelected(), true
	case m.currentView == ViewWishlist && key == "/":
		return m.openLookup(), true
	}
	return nil, false
}

func (m *Model) viewKey(msg tea.KeyMsg) tea.Cmd {
	switch m.currentView {
	case ViewAssets:
		switch msg.String() {
		case "/":
			m.searching = true
			m.search.Focus()
			return nil
		case "d":
			if as, ok := m.selectedAsset(); ok {
				return m.action(func(ctx context.Context) error { return m.app.Assets.Delete(ctx, as) })
			}
		}
	case ViewWishlist:
		switch msg.String() {
		case "d":
			if id, ok := m.selectedWishlistItem(); ok {
				return m.action(func(ctx context.Context) error { return m.app.Wishlist.Delete(ctx, id) })
			}
		case "s":
			m.sortKey = nextSort(m.sortKey)
			key := m.sortKey
			return m.action(func(context.Context) error { return m.app.Wishlist.SortBy(key) })
		}
	case ViewAnalytics:
		if msg.String() == "t" {
			next := nextRange(m.app.Analytics.Range())
			return m.action(func(ctx context.Context) error { return m.app.Analytics.SetRange(ctx, next) })
		}
	}
	return nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.app.Assets.Search("")
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.app.Assets.Search(m.search.Value())
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	content := ContentStyle.Render(m.renderContent())

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	contentLines := strings.Split(content, "\n")
	for len(contentLines) < contentHeight {
		contentLines = append(contentLines, "")
	}
	if contentHeight > 0 && len(contentLines) > contentHeight {
		contentLines = contentLines[:contentHeight]
	}

	return header + "\n" + strings.Join(contentLines, "\n") + "\n" + footer
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("fin")

	var tabs []string
	for i, name := range viewNames {
		style := lipgloss.NewStyle().Padding(0, 1)
		if View(i) == m.currentView {
			style = style.Bold(true).Foreground(ColorPrimary)
		} else {
			style = style.Foreground(ColorMuted)
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("[%d] %s", i+1, name)))
	}

	portfolio := "no portfolio"
	if p := m.app.Navbar.Active(); p != nil {
		portfolio = p.Name
	}
	status := LabelStyle.Render(portfolio + " · " + m.app.Navbar.Currency())

	headerContent := title + "  " + strings.Join(tabs, " ") + "  " + status
	if padding := m.width - lipgloss.Width(headerContent); padding > 0 {
		headerContent += strings.Repeat(" ", padding)
	}

	return lipgloss.NewStyle().
		Background(ColorBackground).
		Width(m.width).
		Render(headerContent)
}

func (m Model) renderContent() string {
	switch {
	case m.form != nil:
		return m.form.view()
	case m.find != nil:
		return m.find.view("Search", m.app.Navbar.Results())
	case m.lookup != nil:
		w := m.app.Wishlist
		return m.lookup.view("Add to Wishlist · "+string(w.SearchKind()), w.Results())
	}

	switch m.currentView {
	case ViewAssets:
		return m.assetsView()
	case ViewMarket:
		return m.marketView()
	case ViewWishlist:
		return m.wishlistView()
	case ViewAnalytics:
		return m.analyticsView()
	default:
		return m.dashboardView()
	}
}

type keyHint struct{ key, desc string }

func (m Model) renderFooter() string {
	var keys []keyHint
	switch {
	case m.confirm != nil:
		keys = []keyHint{{"y", "confirm"}, {"n", "cancel"}}
	case m.form != nil:
		keys = []keyHint{{"tab", "next field"}, {"enter", "save"}, {"esc", "cancel"}}
	case m.find != nil:
		keys = []keyHint{{"↑/↓", "select"}, {"enter", "buy"}, {"esc", "close"}}
	case m.lookup != nil:
		keys = []keyHint{{"tab", "search type"}, {"↑/↓", "select"}, {"enter", "watch"}, {"esc", "close"}}
	case m.searching:
		keys = []keyHint{{"enter", "done"}, {"esc", "clear"}}
	default:
		keys = []keyHint{{"1-5", "switch view"}, {"f", "find"}, {"p", "portfolio"}, {"c", "currency"}, {"r", "refresh"}}
		switch m.currentView {
		case ViewAssets:
			keys = append(keys, keyHint{"a", "add"}, keyHint{"/", "search"}, keyHint{"d", "delete"})
		case ViewWishlist:
			keys = append(keys, keyHint{"/", "add"}, keyHint{"b", "buy"}, keyHint{"s", "sort"}, keyHint{"d", "delete"})
		case ViewAnalytics:
			keys = append(keys, keyHint{"t", "time range"})
		}
		keys = append(keys, keyHint{"q", "quit"})
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, KeyStyle.Render(k.key)+" "+DescStyle.Render(k.desc))
	}
	footerContent := strings.Join(parts, "  •  ")

	switch {
	case m.confirm != nil:
		footerContent = WarningStyle.Render(m.confirm.Prompt) + "  " + footerContent
	case m.toast != nil:
		footerContent = toastStyles[m.toast.Level].Render(m.toast.Text) + "  " + footerContent
	case m.busy:
		footerContent = LabelStyle.Render("Working...") + "  " + footerContent
	}

	if padding := m.width - lipgloss.Width(footerContent); padding > 0 {
		footerContent += strings.Repeat(" ", padding)
	}

	return lipgloss.NewStyle().
		Background(ColorBackground).
		Width(m.width).
		Render(footerContent)
}
