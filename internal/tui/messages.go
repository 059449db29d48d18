package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RenderMsg is sent whenever a page controller changed state.
type RenderMsg struct{}

// ToastMsg is a notification raised by a controller.
type ToastMsg struct {
	Level string
	Text  string
}

// ConfirmMsg asks the user a yes/no question. The answer is sent on Reply.
type ConfirmMsg struct {
	Prompt string
	Reply  chan<- bool
}

// ActionDoneMsg is sent when a user action started from a key press ends.
type ActionDoneMsg struct {
	Err error
}

type clearToastMsg struct{ seq int }

// toastTTL is how long a toast stays in the footer.
const toastTTL = 4 * time.Second

// Bridge carries toasts and confirmations from controller goroutines into the
// running program. It implements the controllers' Notifier and Confirmer.
type Bridge struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []tea.Msg
}

// NewBridge creates an unbound bridge. Messages sent before Bind are queued.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Bind connects the bridge to a program's Send and flushes queued messages.
func (b *Bridge) Bind(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, msg := range pending {
		send(msg)
	}
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	if send == nil {
		b.pending = append(b.pending, msg)
	}
	b.mu.Unlock()

	if send != nil {
		send(msg)
	}
}

// Notify shows a toast in the footer.
func (b *Bridge) Notify(level, message string) {
	b.post(ToastMsg{Level: level, Text: message})
}

// Confirm blocks until the user answers. It must not be called from the
// program's update loop. An unbound bridge declines.
func (b *Bridge) Confirm(prompt string) bool {
	b.mu.Lock()
	bound := b.send != nil
	b.mu.Unlock()
	if !bound {
		return false
	}

	reply := make(chan bool, 1)
	b.post(ConfirmMsg{Prompt: prompt, Reply: reply})
	return <-reply
}

// Render notifies the program that a controller changed.
func (b *Bridge) Render() {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(RenderMsg{})
	}
}
