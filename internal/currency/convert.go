// Package currency converts amounts between the primary (USD) and secondary
// (ARS) numeraires. Every monetary conversion in the ledger pipeline routes
// through here so the defining relationship usd = ars / rate never drifts.
package currency

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidRate indicates a zero or negative exchange rate.
var ErrInvalidRate = errors.New("exchange rate must be positive")

// ToARS converts a USD amount to ARS at the given rate (ARS per USD).
// No rounding is applied; display rounding is the caller's concern.
func ToARS(amountUSD, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return amountUSD.Mul(rate), nil
}

// ToUSD converts an ARS amount to USD at the given rate (ARS per USD).
// ToUSD(ToARS(x, r), r) == x exactly for any rate > 0.
func ToUSD(amountARS, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, ErrInvalidRate
	}
	return amountARS.Div(rate), nil
}
