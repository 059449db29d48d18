package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	toastIcons = map[string]string{
		"info":    "ℹ",
		"success": "✓",
		"warning": "!",
		"error":   "✗",
	}
	toastStyles = map[string]lipgloss.Style{
		"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		"success": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

// Toaster prints toast messages as single styled lines. It satisfies the
// controllers' Notifier.
type Toaster struct {
	w io.Writer
	// Quiet drops info and success toasts, for scripted runs.
	Quiet bool

	mu sync.Mutex
}

// NewToaster creates a toaster writing to w, normally stderr.
func NewToaster(w io.Writer) *Toaster {
	return &Toaster{w: w}
}

// Notify writes one toast line.
func (t *Toaster) Notify(level, message string) {
	if t.Quiet && (level == "info" || level == "success") {
		return
	}

	icon, ok := toastIcons[level]
	if !ok {
		icon, level = toastIcons["info"], "info"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.w, toastStyles[level].Render(icon+" "+message))
}
