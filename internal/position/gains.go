package position

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mervalstat/cedearstat/internal/currency"
	"github.com/mervalstat/cedearstat/internal/domain"
)

// LotValuation is one open lot marked to market in both currencies.
type LotValuation struct {
	Lot            domain.Lot
	MarketValueARS decimal.Decimal
	MarketValueUSD decimal.Decimal
	UnrealizedARS  decimal.Decimal
	UnrealizedUSD  decimal.Decimal
	HoldingDays    int
}

// ValueLot marks a single open lot against the current quote. The cost side
// uses the lot's own historical rate (already baked into PriceUSD), the
// value side the quote's current rate. Price moves and rate moves therefore
// produce different P&L in the two currencies, which is the point.
func ValueLot(lot domain.Lot, quote domain.Quote) (LotValuation, error) {
	currentPriceUSD, err := currency.ToUSD(quote.PriceARS, quote.Rate)
	if err != nil {
		return LotValuation{}, fmt.Errorf("valuing %s: %w", lot.Ticker, err)
	}

	return LotValuation{
		Lot:            lot,
		MarketValueARS: quote.PriceARS.Mul(lot.Quantity),
		MarketValueUSD: currentPriceUSD.Mul(lot.Quantity),
		UnrealizedARS:  quote.PriceARS.Sub(lot.PriceARS).Mul(lot.Quantity),
		UnrealizedUSD:  currentPriceUSD.Sub(lot.PriceUSD).Mul(lot.Quantity),
		HoldingDays:    lot.HoldingDays(quote.Timestamp),
	}, nil
}

// ValueLots marks every open lot of one ticker against its quote.
func ValueLots(lots []domain.Lot, quote domain.Quote) ([]LotValuation, error) {
	valuations := make([]LotValuation, 0, len(lots))
	for _, lot := range lots {
		v, err := ValueLot(lot, quote)
		if err != nil {
			return nil, err
		}
		valuations = append(valuations, v)
	}
	return valuations, nil
}

// RealizedTotals sums realized gain/loss over closed operations per currency.
func RealizedTotals(ops []domain.ClosedOperation) (ars, usd decimal.Decimal) {
	ars = lo.Reduce(ops, func(acc decimal.Decimal, op domain.ClosedOperation, _ int) decimal.Decimal {
		return acc.Add(op.RealizedARS)
	}, decimal.Zero)
	usd = lo.Reduce(ops, func(acc decimal.Decimal, op domain.ClosedOperation, _ int) decimal.Decimal {
		return acc.Add(op.RealizedUSD)
	}, decimal.Zero)
	return ars, usd
}
