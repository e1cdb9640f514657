package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the per-ticker aggregate over currently open lots.
// SharePct is this position's slice of total portfolio market value, in
// percent; AvgHoldingDays is the quantity-weighted mean age of its lots.
type Position struct {
	Ticker           string          `json:"ticker"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnderlyingShares decimal.Decimal `json:"underlyingShares"`
	AvgCostARS       decimal.Decimal `json:"avgCostArs"`
	AvgCostUSD       decimal.Decimal `json:"avgCostUsd"`
	CurrentPriceARS  decimal.Decimal `json:"currentPriceArs"`
	MarketValueARS   decimal.Decimal `json:"marketValueArs"`
	MarketValueUSD   decimal.Decimal `json:"marketValueUsd"`
	UnrealizedARS    decimal.Decimal `json:"unrealizedArs"`
	UnrealizedUSD    decimal.Decimal `json:"unrealizedUsd"`
	SharePct         decimal.Decimal `json:"sharePct"`
	AvgHoldingDays   decimal.Decimal `json:"avgHoldingDays"`
	Lots             []Lot           `json:"lots,omitempty"`
}

// PortfolioSummary is the root aggregate returned to callers. It is rebuilt
// from scratch on every request and never mutated afterwards.
type PortfolioSummary struct {
	GeneratedAt        time.Time         `json:"generatedAt"`
	Rate               decimal.Decimal   `json:"rate"`
	TotalValueARS      decimal.Decimal   `json:"totalValueArs"`
	TotalValueUSD      decimal.Decimal   `json:"totalValueUsd"`
	TotalUnrealizedARS decimal.Decimal   `json:"totalUnrealizedArs"`
	TotalUnrealizedUSD decimal.Decimal   `json:"totalUnrealizedUsd"`
	TotalRealizedARS   decimal.Decimal   `json:"totalRealizedArs"`
	TotalRealizedUSD   decimal.Decimal   `json:"totalRealizedUsd"`
	Positions          []Position        `json:"positions"`
	ClosedOperations   []ClosedOperation `json:"closedOperations"`
}
