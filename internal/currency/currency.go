// Package currency converts backend amounts, which are always in USD, into
// the user's display currency and formats them.
//
// A Converter caches exactly one exchange rate: the one for the currency most
// recently requested. Formatting never touches the network.
package currency

import (
	"context"
	"strings"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finbuddy/fin/pkg/finbuddy"
)

// Base is the currency every backend amount is denominated in.
const Base = "USD"

// Supported lists the currencies offered by the currency selector.
var Supported = []string{"USD", "INR", "EUR", "GBP"}

// RateFetcher retrieves exchange rates. *finbuddy.Client implements it.
type RateFetcher interface {
	GetExchangeRate(ctx context.Context, from, to string) (*finbuddy.ExchangeRate, error)
}

// Converter holds the display currency and the single cached rate.
type Converter struct {
	fetcher RateFetcher
	log     zerolog.Logger

	mu      sync.RWMutex
	display string
	cached  string
	rate    decimal.Decimal
}

// NewConverter creates a converter displaying USD with the identity rate
// cached.
func NewConverter(fetcher RateFetcher, log zerolog.Logger) *Converter {
	return &Converter{
		fetcher: fetcher,
		log:     log,
		display: Base,
		cached:  Base,
		rate:    decimal.NewFromInt(1),
	}
}

// Valid reports whether code is a known ISO currency.
func Valid(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// Normalize upper-cases and trims a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SetDisplay changes the currency amounts are formatted in. It does not fetch
// a rate; call EnsureRate for that.
func (c *Converter) SetDisplay(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display = Normalize(code)
}

// Display returns the display currency.
func (c *Converter) Display() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.display
}

// Cached returns the currency whose rate is cached and that rate.
func (c *Converter) Cached() (string, decimal.Decimal) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached, c.rate
}

// EnsureRate makes target the cached currency. It is a no-op when target is
// already cached, never fetches for USD, and keeps the previous entry when
// the fetch fails.
func (c *Converter) EnsureRate(ctx context.Context, target string) {
	target = Normalize(target)

	c.mu.RLock()
	cached := c.cached
	c.mu.RUnlock()

	if target == cached {
		return
	}

	if target == Base {
		c.store(Base, decimal.NewFromInt(1))
		return
	}

	r, err := c.fetcher.GetExchangeRate(ctx, Base, target)
	if err != nil {
		c.log.Warn().Err(err).Str("currency", target).Msg("exchange rate unavailable, keeping previous rate")
		return
	}
	c.store(target, r.Rate)
}

func (c *Converter) store(code string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = code
	c.rate = rate
}

// Rate returns the multiplier from USD to the display currency. When the
// cached rate belongs to another currency the identity rate is used.
func (c *Converter) Rate() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cached != c.display {
		return decimal.NewFromInt(1)
	}
	return c.rate
}

// Convert converts a USD amount into the display currency.
func (c *Converter) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.Rate())
}

// Format converts a USD amount and renders it in the display currency, for
// example "₹8,312.00". It is idempotent for a given cache state.
func (c *Converter) Format(amount decimal.Decimal) string {
	return FormatAmount(c.Convert(amount), c.Display())
}

// FormatAmount renders an amount already expressed in code.
func FormatAmount(amount decimal.Decimal, code string) string {
	// to get a never nil currency the Money constructor is needed
	cur := *money.New(0, Normalize(code)).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatPercentage renders a percentage with a leading "+" for non-negative
// values, e.g. "+4.20%".
func FormatPercentage(value decimal.Decimal) string {
	if value.Sign() >= 0 {
		return "+" + value.StringFixed(2) + "%"
	}
	return value.StringFixed(2) + "%"
}
