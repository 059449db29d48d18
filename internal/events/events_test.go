package events

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversToTypedListeners(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var portfolios []int64
	var currencies []string
	Subscribe(bus, func(e PortfolioChanged) { portfolios = append(portfolios, e.PortfolioID) })
	Subscribe(bus, func(e CurrencyChanged) { currencies = append(currencies, e.Currency) })

	bus.Publish(PortfolioChanged{PortfolioID: 3})
	bus.Publish(CurrencyChanged{Currency: "INR"})
	bus.Publish(StockSelected{Symbol: "AAPL"})

	assert.Equal(t, []int64{3}, portfolios)
	assert.Equal(t, []string{"INR"}, currencies)
}

func TestBus_RegistrationOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var order []string
	Subscribe(bus, func(PortfolioChanged) { order = append(order, "navbar") })
	Subscribe(bus, func(PortfolioChanged) { order = append(order, "dashboard") })
	Subscribe(bus, func(PortfolioChanged) { order = append(order, "assets") })

	bus.Publish(PortfolioChanged{PortfolioID: 1})

	assert.Equal(t, []string{"navbar", "dashboard", "assets"}, order)
}

func TestBus_PanickingListenerIsolated(t *testing.T) {
	var logs bytes.Buffer
	bus := NewBus(zerolog.New(&logs))

	called := false
	Subscribe(bus, func(PortfolioChanged) { panic("render failed") })
	Subscribe(bus, func(PortfolioChanged) { called = true })

	assert.NotPanics(t, func() { bus.Publish(PortfolioChanged{PortfolioID: 1}) })
	assert.True(t, called)
	assert.Contains(t, logs.String(), "event listener panicked")
}

func TestBus_Cancel(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	cancel := Subscribe(bus, func(StockSelected) { calls++ })
	assert.Equal(t, 1, listeners[StockSelected](bus))

	bus.Publish(StockSelected{Symbol: "MSFT"})
	cancel()
	bus.Publish(StockSelected{Symbol: "MSFT"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, listeners[StockSelected](bus))
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	late := 0
	Subscribe(bus, func(PortfolioChanged) {
		Subscribe(bus, func(PortfolioChanged) { late++ })
	})

	bus.Publish(PortfolioChanged{PortfolioID: 1})
	assert.Equal(t, 0, late)

	bus.Publish(PortfolioChanged{PortfolioID: 2})
	assert.Equal(t, 1, late)
}

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "portfolioChanged(7)", PortfolioChanged{PortfolioID: 7}.String())
	assert.Equal(t, "currencyChanged(EUR)", CurrencyChanged{Currency: "EUR"}.String())
	assert.Equal(t, "stockSelected(TSLA)", StockSelected{Symbol: "TSLA"}.String())
}
