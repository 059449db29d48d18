// Package chart draws the dashboard and analytics charts in the terminal.
//
// Charts are bound to a named canvas. Rendering into a canvas destroys the
// chart previously bound to it, so a canvas never holds more than one live
// chart no matter how often a page re-renders.
package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Kind is the chart type.
type Kind string

const (
	Line     Kind = "line"
	Bar      Kind = "bar"
	Doughnut Kind = "doughnut"
)

// Data is a single labelled series.
type Data struct {
	Labels []string
	Values []float64
}

// Options tune rendering.
type Options struct {
	Title  string
	Width  int
	Height int
	// FormatValue renders bar values; defaults to two decimals.
	FormatValue func(float64) string
}

// Chart is a rendered chart bound to a canvas.
type Chart struct {
	Canvas string
	Kind   Kind
	Data   Data
	Opts   Options

	mu        sync.Mutex
	destroyed bool
}

// Destroyed reports whether the chart was replaced or removed.
func (c *Chart) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *Chart) destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()
}

// Registry tracks the live chart of each canvas.
type Registry struct {
	mu     sync.Mutex
	charts map[string]*Chart
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{charts: make(map[string]*Chart)}
}

// Render destroys the chart bound to canvas, if any, and binds a new one.
func (r *Registry) Render(canvas string, kind Kind, data Data, opts Options) (*Chart, error) {
	switch kind {
	case Line, Bar, Doughnut:
	default:
		return nil, fmt.Errorf("unsupported chart kind: %s", kind)
	}
	if len(data.Labels) != 0 && len(data.Labels) != len(data.Values) {
		return nil, fmt.Errorf("chart %s: %d labels for %d values", canvas, len(data.Labels), len(data.Values))
	}

	c := &Chart{Canvas: canvas, Kind: kind, Data: data, Opts: opts}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.charts[canvas]; ok {
		prev.destroy()
	}
	r.charts[canvas] = c
	return c, nil
}

// Get returns the live chart of canvas, or nil.
func (r *Registry) Get(canvas string) *Chart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.charts[canvas]
}

// Live returns the number of live charts bound to canvas (0 or 1).
func (r *Registry) Live(canvas string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.charts[canvas]; ok && !c.Destroyed() {
		return 1
	}
	return 0
}

// LiveTotal returns the number of live charts across canvases.
func (r *Registry) LiveTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.charts)
}

// Destroy removes the chart bound to canvas.
func (r *Registry) Destroy(canvas string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.charts[canvas]; ok {
		c.destroy()
		delete(r.charts, canvas)
	}
}

// Canvases returns the bound canvas names in sorted order.
func (r *Registry) Canvases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.charts))
	for name := range r.charts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// palette cycles through the same accent colours the TUI uses.
var palette = []lipgloss.Color{"39", "42", "214", "170", "196", "99", "45", "226"}

// View renders the chart as text.
func (c *Chart) View() string {
	if c.Destroyed() {
		return ""
	}
	if len(c.Data.Values) == 0 {
		return c.title() + "No data"
	}

	switch c.Kind {
	case Line:
		return c.lineView()
	case Doughnut:
		return c.shareView()
	default:
		return c.barView()
	}
}

func (c *Chart) title() string {
	if c.Opts.Title == "" {
		return ""
	}
	return lipgloss.NewStyle().Bold(true).Render(c.Opts.Title) + "\n"
}

func (c *Chart) width() int {
	if c.Opts.Width > 0 {
		return c.Opts.Width
	}
	return 60
}

func (c *Chart) lineView() string {
	height := c.Opts.Height
	if height <= 0 {
		height = 10
	}
	opts := []asciigraph.Option{asciigraph.Height(height), asciigraph.Width(c.width())}
	if n := len(c.Data.Labels); n > 1 {
		opts = append(opts, asciigraph.Caption(c.Data.Labels[0]+" → "+c.Data.Labels[n-1]))
	}
	return c.title() + asciigraph.Plot(c.Data.Values, opts...)
}

func (c *Chart) label(i int) string {
	if i < len(c.Data.Labels) {
		return c.Data.Labels[i]
	}
	return fmt.Sprintf("#%d", i+1)
}

func (c *Chart) labelWidth() int {
	w := 0
	for i := range c.Data.Values {
		w = max(w, lipgloss.Width(c.label(i)))
	}
	return w
}

func (c *Chart) barView() string {
	format := c.Opts.FormatValue
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.2f", v) }
	}

	peak := 0.0
	for _, v := range c.Data.Values {
		peak = math.Max(peak, math.Abs(v))
	}

	lw := c.labelWidth()
	barMax := max(c.width()-lw-16, 10)

	var b strings.Builder
	b.WriteString(c.title())
	for i, v := range c.Data.Values {
		n := 0
		if peak > 0 {
			n = int(math.Round(math.Abs(v) / peak * float64(barMax)))
		}
		color := palette[0]
		if v < 0 {
			color = palette[4]
		}
		bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", n))
		fmt.Fprintf(&b, "%-*s %s %s\n", lw, c.label(i), bar, format(v))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Chart) shareView() string {
	total := 0.0
	for _, v := range c.Data.Values {
		if v > 0 {
			total += v
		}
	}

	lw := c.labelWidth()
	barMax := max(c.width()-lw-12, 10)

	var b strings.Builder
	b.WriteString(c.title())
	for i, v := range c.Data.Values {
		share := 0.0
		if total > 0 && v > 0 {
			share = v / total
		}
		n := int(math.Round(share * float64(barMax)))
		bar := lipgloss.NewStyle().Foreground(palette[i%len(palette)]).Render(strings.Repeat("■", n))
		fmt.Fprintf(&b, "%-*s %s %5.1f%%\n", lw, c.label(i), bar, share*100)
	}
	return strings.TrimRight(b.String(), "\n")
}
