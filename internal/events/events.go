// Package events is the in-process notification bus that keeps pages in sync
// when the active portfolio, the display currency or the selected stock
// changes.
package events

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog"
)

// Event is one of the notifications published on the bus. The set is closed:
// only types in this package implement it.
type Event interface {
	isEvent()
	fmt.Stringer
}

// PortfolioChanged is published when the active portfolio is selected,
// refreshed or must be reloaded for another reason.
type PortfolioChanged struct {
	PortfolioID int64
}

// CurrencyChanged is published after the display currency changed and its
// rate has been fetched.
type CurrencyChanged struct {
	Currency string
}

// StockSelected is published when a search result is chosen.
type StockSelected struct {
	Symbol string
}

func (PortfolioChanged) isEvent() {}
func (CurrencyChanged) isEvent()  {}
func (StockSelected) isEvent()    {}

func (e PortfolioChanged) String() string { return fmt.Sprintf("portfolioChanged(%d)", e.PortfolioID) }
func (e CurrencyChanged) String() string  { return "currencyChanged(" + e.Currency + ")" }
func (e StockSelected) String() string    { return "stockSelected(" + e.Symbol + ")" }

type listener struct {
	id  uint64
	typ reflect.Type
	fn  func(Event)
}

// Bus delivers events synchronously to listeners in registration order.
type Bus struct {
	log zerolog.Logger

	mu        sync.Mutex
	nextID    uint64
	listeners []listener
}

// NewBus creates a bus. Listener panics are recovered and logged to log.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers fn for events of type E. The returned func removes the
// subscription.
func Subscribe[E Event](b *Bus, fn func(E)) (cancel func()) {
	var zero E
	typ := reflect.TypeOf(zero)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener{
		id:  id,
		typ: typ,
		fn:  func(e Event) { fn(e.(E)) },
	})
	b.mu.Unlock()

	return func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Publish calls every listener of e's type before returning. A panicking
// listener does not stop delivery to the others.
func (b *Bus) Publish(e Event) {
	typ := reflect.TypeOf(e)

	b.mu.Lock()
	targets := make([]listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		if l.typ == typ {
			targets = append(targets, l)
		}
	}
	b.mu.Unlock()

	b.log.Debug().Stringer("event", e).Int("listeners", len(targets)).Msg("publish")

	for _, l := range targets {
		b.deliver(l, e)
	}
}

func (b *Bus) deliver(l listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Stringer("event", e).Interface("panic", r).Msg("event listener panicked")
		}
	}()
	l.fn(e)
}

// listeners returns how many listeners are registered for events of type E.
func listeners[E Event](b *Bus) int {
	var zero E
	typ := reflect.TypeOf(zero)

	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, l := range b.listeners {
		if l.typ == typ {
			n++
		}
	}
	return n
}
