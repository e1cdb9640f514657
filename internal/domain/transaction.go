package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a transaction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// IsValid reports whether the side is one of the two known values.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Transaction is a single immutable ledger entry for a CEDEAR trade.
// Prices are quoted per receipt unit in ARS; Rate is the CCL dollar rate
// (ARS per USD) in effect at trade time. Seq preserves submission order and
// breaks trade-date ties during FIFO matching.
type Transaction struct {
	ID        int64           `json:"id,omitempty"`
	Ticker    string          `json:"ticker"`
	Side      Side            `json:"side"`
	TradeDate time.Time       `json:"tradeDate"`
	Quantity  decimal.Decimal `json:"quantity"`
	PriceARS  decimal.Decimal `json:"priceArs"`
	Rate      decimal.Decimal `json:"rate"`
	Ratio     decimal.Decimal `json:"ratio"`
	Seq       int             `json:"seq,omitempty"`
}

// TotalARS returns price * quantity in ARS.
func (t Transaction) TotalARS() decimal.Decimal {
	return t.PriceARS.Mul(t.Quantity)
}

// TotalUSD returns the ARS total converted at the transaction's historical rate.
// Callers must have validated Rate > 0 (the ledger does).
func (t Transaction) TotalUSD() decimal.Decimal {
	return t.TotalARS().Div(t.Rate)
}

// UnderlyingShares returns the implied quantity of real foreign shares
// (receipt units divided by the conversion ratio).
func (t Transaction) UnderlyingShares() decimal.Decimal {
	if t.Ratio.IsZero() {
		return decimal.Zero
	}
	return t.Quantity.Div(t.Ratio)
}

// Quote is the current market state for one ticker: last ARS price plus the
// CCL rate at quote time.
type Quote struct {
	Ticker    string          `json:"ticker"`
	PriceARS  decimal.Decimal `json:"priceArs"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}
