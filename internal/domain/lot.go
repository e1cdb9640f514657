package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is an open quantity of a ticker acquired at a specific cost basis.
// PriceUSD is the acquisition price converted at the lot's own historical
// rate; that rate travels with the lot so realized and unrealized figures
// can keep the cost side at acquisition-time dollars.
type Lot struct {
	Ticker     string          `json:"ticker"`
	Quantity   decimal.Decimal `json:"quantity"`
	PriceARS   decimal.Decimal `json:"priceArs"`
	PriceUSD   decimal.Decimal `json:"priceUsd"`
	Rate       decimal.Decimal `json:"rate"`
	Ratio      decimal.Decimal `json:"ratio"`
	AcquiredAt time.Time       `json:"acquiredAt"`
}

// CostARS returns the total ARS cost of the open quantity.
func (l Lot) CostARS() decimal.Decimal {
	return l.PriceARS.Mul(l.Quantity)
}

// CostUSD returns the total USD cost of the open quantity at the lot's rate.
func (l Lot) CostUSD() decimal.Decimal {
	return l.PriceUSD.Mul(l.Quantity)
}

// HoldingDays returns whole days between acquisition and the given date.
func (l Lot) HoldingDays(asOf time.Time) int {
	return wholeDays(l.AcquiredAt, asOf)
}

// ClosedOperation records one lot (or part of one) closed by a sell.
// A single sell spanning several lots produces one record per lot touched.
type ClosedOperation struct {
	Ticker       string          `json:"ticker"`
	AcquiredAt   time.Time       `json:"acquiredAt"`
	DisposedAt   time.Time       `json:"disposedAt"`
	Quantity     decimal.Decimal `json:"quantity"`
	BuyPriceARS  decimal.Decimal `json:"buyPriceArs"`
	BuyPriceUSD  decimal.Decimal `json:"buyPriceUsd"`
	SellPriceARS decimal.Decimal `json:"sellPriceArs"`
	SellPriceUSD decimal.Decimal `json:"sellPriceUsd"`
	RealizedARS  decimal.Decimal `json:"realizedArs"`
	RealizedUSD  decimal.Decimal `json:"realizedUsd"`
	HoldingDays  int             `json:"holdingDays"`
}

// wholeDays truncates both instants to UTC dates and returns the difference in days.
func wholeDays(from, to time.Time) int {
	f := from.UTC().Truncate(24 * time.Hour)
	t := to.UTC().Truncate(24 * time.Hour)
	return int(t.Sub(f).Hours() / 24)
}
