// Package prefs stores small user preferences that outlive a single page:
// the active portfolio, the display currency and a few UI toggles.
//
// Durable preferences live in a YAML file next to config.yaml. Session scoped
// values (the wishlist page's portfolio and the buy-now symbol handoff) live
// in a MemoryStore that is dropped when the process exits.
package prefs

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Durable preference keys.
const (
	KeyActivePortfolio   = "activePortfolioId"
	KeyPreferredCurrency = "preferredCurrency"
	KeyTheme             = "theme"
	KeySidebarCollapsed  = "sidebarCollapsed"
)

// Session scoped keys.
const (
	KeySessionPortfolio = "current_portfolio_id"
	KeyPrefillSymbol    = "prefill_symbol"
)

// Defaults applied when a key has never been written.
const (
	DefaultCurrency = "USD"
	DefaultTheme    = "dark"
)

// EnvPreferredCurrency overrides the stored display currency when set.
const EnvPreferredCurrency = "FINBUDDY_CURRENCY"

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("preference not found")

// Store is a string key/value store. Writes are last-write-wins.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Value returns the stored value for key, or def when it is missing or the
// store cannot be read.
func Value(s Store, key, def string) string {
	v, err := s.Get(key)
	if err != nil || v == "" {
		return def
	}
	return v
}

// Take reads key and removes it, so the value is consumed at most once.
func Take(s Store, key string) (string, bool) {
	v, err := s.Get(key)
	if err != nil || v == "" {
		return "", false
	}
	_ = s.Delete(key)
	return v, true
}

// Bool reads a "true"/"false" preference.
func Bool(s Store, key string, def bool) bool {
	v, err := s.Get(key)
	if err != nil {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// SetBool stores a boolean preference.
func SetBool(s Store, key string, v bool) error {
	return s.Set(key, strconv.FormatBool(v))
}

// ID reads a numeric id preference. ok is false when missing or malformed.
func ID(s Store, key string) (int64, bool) {
	v, err := s.Get(key)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetID stores a numeric id preference.
func SetID(s Store, key string, id int64) error {
	return s.Set(key, strconv.FormatInt(id, 10))
}

// Currency returns the preferred display currency.
func Currency(s Store) string {
	return strings.ToUpper(Value(s, KeyPreferredCurrency, DefaultCurrency))
}

// EnvStore wraps another Store and lets FINBUDDY_CURRENCY override the
// preferred currency for headless runs.
type EnvStore struct {
	underlying Store
}

// NewEnvStore creates a new EnvStore wrapping the given store.
func NewEnvStore(underlying Store) *EnvStore {
	return &EnvStore{underlying: underlying}
}

// Get checks the environment first for the preferred currency.
func (e *EnvStore) Get(key string) (string, error) {
	if key == KeyPreferredCurrency {
		if envVal := os.Getenv(EnvPreferredCurrency); envVal != "" {
			return envVal, nil
		}
	}
	return e.underlying.Get(key)
}

// Set stores a value in the underlying store.
func (e *EnvStore) Set(key, value string) error {
	return e.underlying.Set(key, value)
}

// Delete removes a value from the underlying store.
func (e *EnvStore) Delete(key string) error {
	return e.underlying.Delete(key)
}
