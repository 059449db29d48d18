package finbuddy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Dates are kept as the backend sends them (ISO-8601 local dates and
// date-times without zone), so they are plain strings here.

// Portfolio is a named collection of assets.
type Portfolio struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	BaseCurrency       string          `json:"baseCurrency,omitempty"`
	TotalValue         decimal.Decimal `json:"totalValue"`
	TotalInvestment    decimal.Decimal `json:"totalInvestment"`
	TotalGainLoss      decimal.Decimal `json:"totalGainLoss"`
	GainLossPercentage decimal.Decimal `json:"gainLossPercentage"`
	CreatedAt          string          `json:"createdAt,omitempty"`
	UpdatedAt          string          `json:"updatedAt,omitempty"`
}

// PortfolioInput is the body for creating or updating a portfolio.
type PortfolioInput struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	BaseCurrency string `json:"baseCurrency,omitempty"`
}

// AssetAllocation is one slice of the allocation breakdown by asset type.
type AssetAllocation struct {
	AssetType  string          `json:"assetType"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Percentage decimal.Decimal `json:"percentage"`
	Count      int             `json:"count"`
}

// AssetPerformance is a top performer entry on the dashboard.
type AssetPerformance struct {
	AssetID            int64           `json:"assetId"`
	Name               string          `json:"name"`
	Symbol             string          `json:"symbol"`
	AssetType          string          `json:"assetType"`
	CurrentValue       decimal.Decimal `json:"currentValue"`
	GainLoss           decimal.Decimal `json:"gainLoss"`
	GainLossPercentage decimal.Decimal `json:"gainLossPercentage"`
}

// DashboardSummary aggregates a portfolio for the dashboard page.
type DashboardSummary struct {
	PortfolioID        int64              `json:"portfolioId"`
	PortfolioName      string             `json:"portfolioName"`
	TotalValue         decimal.Decimal    `json:"totalValue"`
	TotalInvestment    decimal.Decimal    `json:"totalInvestment"`
	TotalGainLoss      decimal.Decimal    `json:"totalGainLoss"`
	GainLossPercentage decimal.Decimal    `json:"gainLossPercentage"`
	BaseCurrency       string             `json:"baseCurrency,omitempty"`
	AssetAllocation    []AssetAllocation  `json:"assetAllocation"`
	TopPerformers      []AssetPerformance `json:"topPerformers"`
	AssetCount         int                `json:"assetCount"`
	WishlistCount      int                `json:"wishlistCount"`
}

// RiskAnalysis is passed through untyped; the backend decides its metrics.
type RiskAnalysis map[string]any

// HistoryPoint is one daily snapshot of a portfolio's value.
type HistoryPoint struct {
	ID                 int64           `json:"id,omitempty"`
	RecordDate         string          `json:"recordDate"`
	TotalValue         decimal.Decimal `json:"totalValue"`
	TotalInvestment    decimal.Decimal `json:"totalInvestment"`
	GainLoss           decimal.Decimal `json:"gainLoss"`
	GainLossPercentage decimal.Decimal `json:"gainLossPercentage"`
}

// AssetType identifies the asset subtype.
type AssetType string

const (
	AssetStock      AssetType = "STOCK"
	AssetBond       AssetType = "BOND"
	AssetMutualFund AssetType = "MUTUAL_FUND"
	AssetSIP        AssetType = "SIP"
)

// AssetTypes lists every supported asset type.
var AssetTypes = []AssetType{AssetStock, AssetBond, AssetMutualFund, AssetSIP}

var assetEndpoints = map[AssetType]string{
	AssetStock:      "stocks",
	AssetBond:       "bonds",
	AssetMutualFund: "mutualfunds",
	AssetSIP:        "sips",
}

// ParseAssetType accepts the backend spelling and a few shorthands
// (stock, bond, mf, mutual-fund, sip).
func ParseAssetType(s string) (AssetType, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "STOCK", "STOCKS":
		return AssetStock, nil
	case "BOND", "BONDS":
		return AssetBond, nil
	case "MUTUAL_FUND", "MUTUAL_FUNDS", "MF", "MUTUALFUND":
		return AssetMutualFund, nil
	case "SIP", "SIPS":
		return AssetSIP, nil
	}
	return "", fmt.Errorf("unsupported asset type: %s", s)
}

// Asset is a holding. Subtype specific fields are only set for their type.
type Asset struct {
	ID                 int64           `json:"id,omitempty"`
	AssetType          AssetType       `json:"assetType,omitempty"`
	Name               string          `json:"name"`
	Symbol             string          `json:"symbol,omitempty"`
	Quantity           int64           `json:"quantity"`
	PurchasePrice      decimal.Decimal `json:"purchasePrice"`
	CurrentPrice       decimal.Decimal `json:"currentPrice"`
	InvestedAmount     decimal.Decimal `json:"investedAmount"`
	CurrentValue       decimal.Decimal `json:"currentValue"`
	GainLoss           decimal.Decimal `json:"gainLoss"`
	GainLossPercentage decimal.Decimal `json:"gainLossPercentage"`
	Currency           string          `json:"currency,omitempty"`
	PurchaseDate       string          `json:"purchaseDate,omitempty"`
	Notes              string          `json:"notes,omitempty"`

	// Stock
	Exchange      string              `json:"exchange,omitempty"`
	Sector        string              `json:"sector,omitempty"`
	MarketCap     string              `json:"marketCap,omitempty"`
	DividendYield decimal.NullDecimal `json:"dividendYield,omitempty"`
	PERatio       decimal.NullDecimal `json:"peRatio,omitempty"`

	// Bond
	CouponRate   decimal.NullDecimal `json:"couponRate,omitempty"`
	MaturityDate string              `json:"maturityDate,omitempty"`
	FaceValue    decimal.NullDecimal `json:"faceValue,omitempty"`
	BondType     string              `json:"bondType,omitempty"`
	Issuer       string              `json:"issuer,omitempty"`
	CreditRating string              `json:"creditRating,omitempty"`

	// Mutual fund
	NAV          decimal.NullDecimal `json:"nav,omitempty"`
	FundType     string              `json:"fundType,omitempty"`
	FundHouse    string              `json:"fundHouse,omitempty"`
	ExpenseRatio decimal.NullDecimal `json:"expenseRatio,omitempty"`
	RiskLevel    string              `json:"riskLevel,omitempty"`
	SchemeCode   string              `json:"schemeCode,omitempty"`
	Category     string              `json:"category,omitempty"`

	// SIP
	MonthlyInvestment decimal.NullDecimal `json:"monthlyInvestment,omitempty"`
	StartDate         string              `json:"startDate,omitempty"`
	EndDate           string              `json:"endDate,omitempty"`
	Frequency         string              `json:"frequency,omitempty"`
	SchemeName        string              `json:"schemeName,omitempty"`
	IsActive          *bool               `json:"isActive,omitempty"`
	TotalInstallments int                 `json:"totalInstallments,omitempty"`
}

// DisplaySymbol returns the symbol, falling back to the scheme code for funds.
func (a Asset) DisplaySymbol() string {
	if a.Symbol != "" {
		return a.Symbol
	}
	if a.SchemeCode != "" {
		return a.SchemeCode
	}
	return "-"
}

// Quote is a live market price for one symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	High          decimal.Decimal `json:"high,omitempty"`
	Low           decimal.Decimal `json:"low,omitempty"`
	Open          decimal.Decimal `json:"open,omitempty"`
	PreviousClose decimal.Decimal `json:"previousClose,omitempty"`
	Volume        int64           `json:"volume,omitempty"`
	Currency      string          `json:"currency,omitempty"`
}

// ExchangeRate is the multiplier converting From into To.
type ExchangeRate struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// BenchmarkValue is the latest value of a market index.
type BenchmarkValue struct {
	Symbol    string          `json:"symbol"`
	Value     decimal.Decimal `json:"value"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// SearchResult is a symbol lookup hit.
type SearchResult struct {
	Symbol        string `json:"symbol"`
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol,omitempty"`
	Type          string `json:"type,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Exchange      string `json:"exchange,omitempty"`
	MIC           string `json:"mic,omitempty"`
	InWishlist    bool   `json:"inWishlist,omitempty"`
}

// SearchKind selects the market search endpoint.
type SearchKind string

const (
	SearchStocks      SearchKind = "stocks"
	SearchBonds       SearchKind = "bonds"
	SearchMutualFunds SearchKind = "mutual-funds"
	SearchSIPs        SearchKind = "sips"
	SearchAll         SearchKind = "all"
)

// WishlistCategory is the kind of watched instrument.
type WishlistCategory string

const (
	CategoryStock      WishlistCategory = "STOCK"
	CategoryBond       WishlistCategory = "BOND"
	CategoryCrypto     WishlistCategory = "CRYPTO"
	CategoryETF        WishlistCategory = "ETF"
	CategoryMutualFund WishlistCategory = "MUTUAL_FUND"
)

// WishlistCategories lists the categories accepted by the backend.
var WishlistCategories = []WishlistCategory{CategoryStock, CategoryBond, CategoryCrypto, CategoryETF, CategoryMutualFund}

// ParseWishlistCategory validates a category name case-insensitively.
func ParseWishlistCategory(s string) (WishlistCategory, error) {
	c := WishlistCategory(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, known := range WishlistCategories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported category: %s", s)
}

// WishlistItem is a watched symbol with an optional price alert.
type WishlistItem struct {
	ID                    int64               `json:"id"`
	Symbol                string              `json:"symbol"`
	Name                  string              `json:"name,omitempty"`
	Category              WishlistCategory    `json:"category,omitempty"`
	TargetPrice           decimal.NullDecimal `json:"targetPrice"`
	PriceWhenAdded        decimal.Decimal     `json:"priceWhenAdded"`
	CurrentPrice          decimal.Decimal     `json:"currentPrice"`
	DayHigh               decimal.Decimal     `json:"dayHigh"`
	DayLow                decimal.Decimal     `json:"dayLow"`
	YearHigh              decimal.Decimal     `json:"yearHigh"`
	YearLow               decimal.Decimal     `json:"yearLow"`
	MarketCap             decimal.Decimal     `json:"marketCap"`
	ChangePercentage      decimal.Decimal     `json:"changePercentage"`
	ChangeAmount          decimal.Decimal     `json:"changeAmount"`
	PerformanceSinceAdded decimal.Decimal     `json:"performanceSinceAdded"`
	Notes                 string              `json:"notes,omitempty"`
	AlertEnabled          bool                `json:"alertEnabled"`
	AlertTriggered        bool                `json:"alertTriggered"`
	AddedAt               string              `json:"addedAt,omitempty"`
	LastUpdated           string              `json:"lastUpdated,omitempty"`
	Currency              string              `json:"currency,omitempty"`
}

// WishlistSummary counts wishlist items by status.
type WishlistSummary struct {
	TotalWatchlist int `json:"totalWatchlist"`
	GainersCount   int `json:"gainersCount"`
	LosersCount    int `json:"losersCount"`
	AlertsCount    int `json:"alertsCount"`
}

// AddWishlistItemRequest adds a symbol to a wishlist.
type AddWishlistItemRequest struct {
	Symbol      string              `json:"symbol"`
	Category    WishlistCategory    `json:"category"`
	TargetPrice decimal.NullDecimal `json:"targetPrice"`
	Notes       string              `json:"notes,omitempty"`
}

// WishlistUpdate patches a wishlist item. Nil fields are left unchanged
// except TargetPrice, which is always sent so that null clears the alert.
type WishlistUpdate struct {
	TargetPrice       decimal.NullDecimal `json:"targetPrice"`
	Notes             *string             `json:"notes,omitempty"`
	PriceAlertEnabled *bool               `json:"priceAlertEnabled,omitempty"`
	Priority          *int                `json:"priority,omitempty"`
}

// Benchmark is a market index tracked alongside a portfolio.
type Benchmark struct {
	ID               int64           `json:"id"`
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	IndexType        string          `json:"indexType,omitempty"`
	CurrentValue     decimal.Decimal `json:"currentValue"`
	ChangeAmount     decimal.Decimal `json:"changeAmount"`
	ChangePercentage decimal.Decimal `json:"changePercentage"`
	LastUpdated      string          `json:"lastUpdated,omitempty"`
	AddedAt          string          `json:"addedAt,omitempty"`
	Description      string          `json:"description,omitempty"`
	Currency         string          `json:"currency,omitempty"`
}

// BenchmarkRequest adds a benchmark to a portfolio.
type BenchmarkRequest struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	IndexType   string `json:"indexType,omitempty"`
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency,omitempty"`
}
