package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// picker is a search box over market search results with a cursor.
type picker struct {
	input  textinput.Model
	cursor int
}

func newPicker(placeholder string) *picker {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 40
	ti.Width = 30
	ti.Focus()
	return &picker{input: ti}
}

// move shifts the cursor by delta, staying within n results.
func (p *picker) move(delta, n int) {
	p.cursor = min(max(p.cursor+delta, 0), max(n-1, 0))
}

// selected returns the result under the cursor.
func (p *picker) selected(results []finbuddy.SearchResult) (finbuddy.SearchResult, bool) {
	if len(results) == 0 {
		return finbuddy.SearchResult{}, false
	}
	return results[min(p.cursor, len(results)-1)], true
}

func (p *picker) view(title string, results []finbuddy.SearchResult) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title) + "\n")
	b.WriteString(InputStyle.Render(p.input.View()) + "\n")
	if len(strings.TrimSpace(p.input.Value())) < controller.MinSearchLength {
		b.WriteString(LabelStyle.Render(fmt.Sprintf("Type at least %d characters", controller.MinSearchLength)))
		return b.String()
	}
	if len(results) == 0 {
		b.WriteString(LabelStyle.Render("No results"))
		return b.String()
	}
	for i, r := range results {
		line := fmt.Sprintf("%-12s %s", r.Symbol, r.Description)
		if r.InWishlist {
			line += " ★"
		}
		if i == p.cursor {
			b.WriteString(KeyStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

// openFind starts the global symbol search.
func (m *Model) openFind() tea.Cmd {
	m.find = newPicker("Search stocks, bonds, funds")
	return textinput.Blink
}

func (m Model) updateFind(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	nav := m.app.Navbar
	results := nav.Results()

	switch msg.String() {
	case "esc":
		m.find = nil
		nav.Search("")
		return m, nil
	case "up":
		m.find.move(-1, len(results))
		return m, nil
	case "down":
		m.find.move(1, len(results))
		return m, nil
	case "enter":
		r, ok := m.find.selected(results)
		if !ok {
			return m, nil
		}
		m.find = nil
		nav.SelectStock(r.Symbol)
		m.currentView = ViewAssets
		return m, m.openAssetForm()
	}

	var cmd tea.Cmd
	m.find.input, cmd = m.find.input.Update(msg)
	m.find.cursor = 0
	nav.Search(m.find.input.Value())
	return m, cmd
}

// Asset form fields, in tab order.
const (
	fieldSymbol = iota
	fieldName
	fieldQuantity
	fieldPrice
)

var assetFormLabels = []string{"Symbol", "Name", "Quantity", "Purchase price"}

// assetForm adds a stock holding to the active portfolio.
type assetForm struct {
	inputs  []textinput.Model
	focused int
	err     string
}

// openAssetForm shows the add form, prefilled with the symbol handed over
// by the search or the wishlist.
func (m *Model) openAssetForm() tea.Cmd {
	f := &assetForm{}
	for _, label := range assetFormLabels {
		ti := textinput.New()
		ti.Placeholder = label
		ti.CharLimit = 40
		ti.Width = 30
		f.inputs = append(f.inputs, ti)
	}
	if symbol, ok := m.app.Assets.PrefillSymbol(); ok {
		f.inputs[fieldSymbol].SetValue(symbol)
		f.focused = fieldName
	}
	m.form = f
	return f.inputs[f.focused].Focus()
}

func (f *assetForm) focus(field int) tea.Cmd {
	f.inputs[f.focused].Blur()
	f.focused = (field + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focused].Focus()
}

// asset parses the form into a stock holding.
func (f *assetForm) asset() (finbuddy.Asset, error) {
	qty, err := strconv.ParseInt(strings.TrimSpace(f.inputs[fieldQuantity].Value()), 10, 64)
	if err != nil {
		return finbuddy.Asset{}, errors.New("quantity must be a whole number")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(f.inputs[fieldPrice].Value()))
	if err != nil {
		return finbuddy.Asset{}, errors.New("purchase price must be a number")
	}
	symbol := strings.TrimSpace(f.inputs[fieldSymbol].Value())
	name := strings.TrimSpace(f.inputs[fieldName].Value())
	if name == "" {
		name = strings.ToUpper(symbol)
	}
	return finbuddy.Asset{
		AssetType:     finbuddy.AssetStock,
		Name:          name,
		Symbol:        symbol,
		Quantity:      qty,
		PurchasePrice: price,
		CurrentPrice:  price,
		PurchaseDate:  time.Now().Format(time.DateOnly),
		Currency:      currency.Base,
	}, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	switch msg.String() {
	case "esc":
		m.form = nil
		return m, nil
	case "tab", "down":
		return m, f.focus(f.focused + 1)
	case "shift+tab", "up":
		return m, f.focus(f.focused - 1)
	case "enter":
		if f.focused < fieldPrice {
			return m, f.focus(f.focused + 1)
		}
		in, err := f.asset()
		if err != nil {
			f.err = err.Error()
			return m, nil
		}
		m.form = nil
		m.busy = true
		return m, m.action(func(ctx context.Context) error {
			_, err := m.app.Assets.Create(ctx, in)
			return err
		})
	}

	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	f.err = ""
	return m, cmd
}

func (f *assetForm) view() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Add Stock") + "\n\n")
	for i, label := range assetFormLabels {
		style := LabelStyle
		if i == f.focused {
			style = KeyStyle
		}
		fmt.Fprintf(&b, "%s\n%s\n", style.Render(label), InputStyle.Render(f.inputs[i].View()))
	}
	if f.err != "" {
		b.WriteString(RedStyle.Render(f.err) + "\n")
	}
	return b.String()
}

// buySelected hands the selected wishlist symbol to the asset form.
func (m *Model) buySelected() tea.Cmd {
	i := m.wishlist.Cursor()
	if i < 0 || i >= len(m.wishlistSymbols) {
		return nil
	}
	if err := m.app.Wishlist.BuyNow(m.wishlistSymbols[i]); err != nil {
		return nil
	}
	m.currentView = ViewAssets
	return m.openAssetForm()
}

// openLookup starts the wishlist add search.
func (m *Model) openLookup() tea.Cmd {
	m.lookup = newPicker("Symbol to watch")
	m.app.Wishlist.Search("")
	return textinput.Blink
}

// nextSearchKind cycles through the wishlist lookups.
func nextSearchKind(cur finbuddy.SearchKind) finbuddy.SearchKind {
	kinds := controller.WishlistSearchKinds
	for i, k := range kinds {
		if k == cur {
			return kinds[(i+1)%len(kinds)]
		}
	}
	return kinds[0]
}

// categoryFor picks the wishlist category of a search hit.
func categoryFor(kind finbuddy.SearchKind, r finbuddy.SearchResult) finbuddy.WishlistCategory {
	if c, err := finbuddy.ParseWishlistCategory(r.Type); err == nil {
		return c
	}
	switch kind {
	case finbuddy.SearchBonds:
		return finbuddy.CategoryBond
	case finbuddy.SearchMutualFunds, finbuddy.SearchSIPs:
		return finbuddy.CategoryMutualFund
	default:
		return finbuddy.CategoryStock
	}
}

func (m Model) updateLookup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w := m.app.Wishlist
	results := w.Results()

	switch msg.String() {
	case "esc":
		m.lookup = nil
		w.Search("")
		return m, nil
	case "tab":
		w.SetSearchType(nextSearchKind(w.SearchKind()))
		m.lookup.cursor = 0
		return m, nil
	case "up":
		m.lookup.move(-1, len(results))
		return m, nil
	case "down":
		m.lookup.move(1, len(results))
		return m, nil
	case "enter":
		r, ok := m.lookup.selected(results)
		if !ok {
			return m, nil
		}
		req := finbuddy.AddWishlistItemRequest{Symbol: r.Symbol, Category: categoryFor(w.SearchKind(), r)}
		m.lookup = nil
		w.Search("")
		m.busy = true
		return m, m.action(func(ctx context.Context) error {
			_, err := w.Add(ctx, req)
			return err
		})
	}

	var cmd tea.Cmd
	m.lookup.input, cmd = m.lookup.input.Update(msg)
	m.lookup.cursor = 0
	w.Search(m.lookup.input.Value())
	return m, cmd
}
