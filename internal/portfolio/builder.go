// Package portfolio aggregates reconciled positions and live quotes into the
// portfolio summary. Everything here is rebuilt from scratch per request;
// nothing is cached or mutated in place.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mervalstat/cedearstat/internal/domain"
	"github.com/mervalstat/cedearstat/internal/position"
)

// ErrMissingQuote indicates an open position with no current quote; a
// summary silently skipping it would misstate totals and shares.
var ErrMissingQuote = errors.New("no quote for open position")

var hundred = decimal.NewFromInt(100)

// BuildSummary assembles the root aggregate from per-ticker reconciliation
// results, a quote per open ticker, and the current rate used for valuation.
func BuildSummary(results map[string]position.TickerResult, quotes map[string]domain.Quote, rate decimal.Decimal, asOf time.Time) (domain.PortfolioSummary, error) {
	summary := domain.PortfolioSummary{
		GeneratedAt:        asOf,
		Rate:               rate,
		TotalValueARS:      decimal.Zero,
		TotalValueUSD:      decimal.Zero,
		TotalUnrealizedARS: decimal.Zero,
		TotalUnrealizedUSD: decimal.Zero,
		TotalRealizedARS:   decimal.Zero,
		TotalRealizedUSD:   decimal.Zero,
	}

	for ticker, res := range results {
		summary.ClosedOperations = append(summary.ClosedOperations, res.Closed...)

		if len(res.OpenLots) == 0 {
			continue
		}
		quote, ok := quotes[ticker]
		if !ok {
			return domain.PortfolioSummary{}, fmt.Errorf("%w: %s", ErrMissingQuote, ticker)
		}

		pos, err := buildPosition(ticker, res.OpenLots, quote)
		if err != nil {
			return domain.PortfolioSummary{}, err
		}
		summary.Positions = append(summary.Positions, pos)

		summary.TotalValueARS = summary.TotalValueARS.Add(pos.MarketValueARS)
		summary.TotalValueUSD = summary.TotalValueUSD.Add(pos.MarketValueUSD)
		summary.TotalUnrealizedARS = summary.TotalUnrealizedARS.Add(pos.UnrealizedARS)
		summary.TotalUnrealizedUSD = summary.TotalUnrealizedUSD.Add(pos.UnrealizedUSD)
	}

	summary.TotalRealizedARS, summary.TotalRealizedUSD = position.RealizedTotals(summary.ClosedOperations)

	// Shares are assigned after totals are known. A zero-value portfolio
	// gets 0% everywhere instead of a division by zero.
	for i := range summary.Positions {
		if summary.TotalValueARS.IsPositive() {
			summary.Positions[i].SharePct = summary.Positions[i].MarketValueARS.
				Div(summary.TotalValueARS).Mul(hundred)
		} else {
			summary.Positions[i].SharePct = decimal.Zero
		}
	}

	sort.Slice(summary.Positions, func(i, j int) bool {
		return summary.Positions[i].Ticker < summary.Positions[j].Ticker
	})
	sort.SliceStable(summary.ClosedOperations, func(i, j int) bool {
		if summary.ClosedOperations[i].DisposedAt.Equal(summary.ClosedOperations[j].DisposedAt) {
			return summary.ClosedOperations[i].Ticker < summary.ClosedOperations[j].Ticker
		}
		return summary.ClosedOperations[i].DisposedAt.Before(summary.ClosedOperations[j].DisposedAt)
	})

	return summary, nil
}

// buildPosition collapses one ticker's open lots into its Position aggregate.
func buildPosition(ticker string, lots []domain.Lot, quote domain.Quote) (domain.Position, error) {
	valuations, err := position.ValueLots(lots, quote)
	if err != nil {
		return domain.Position{}, err
	}

	quantities := lo.Map(lots, func(l domain.Lot, _ int) decimal.Decimal { return l.Quantity })
	totalQty := lo.Reduce(quantities, func(acc, q decimal.Decimal, _ int) decimal.Decimal {
		return domain.SafeSum(acc, q)
	}, decimal.Zero)

	underlying := lo.Reduce(lots, func(acc decimal.Decimal, l domain.Lot, _ int) decimal.Decimal {
		return acc.Add(l.Quantity.Div(l.Ratio))
	}, decimal.Zero)

	costsARS := lo.Map(lots, func(l domain.Lot, _ int) decimal.Decimal { return l.PriceARS })
	costsUSD := lo.Map(lots, func(l domain.Lot, _ int) decimal.Decimal { return l.PriceUSD })
	holdingDays := lo.Map(valuations, func(v position.LotValuation, _ int) decimal.Decimal {
		return decimal.NewFromInt(int64(v.HoldingDays))
	})

	pos := domain.Position{
		Ticker:           ticker,
		Quantity:         totalQty,
		UnderlyingShares: underlying,
		AvgCostARS:       domain.WeightedAverage(costsARS, quantities),
		AvgCostUSD:       domain.WeightedAverage(costsUSD, quantities),
		CurrentPriceARS:  quote.PriceARS,
		MarketValueARS:   decimal.Zero,
		MarketValueUSD:   decimal.Zero,
		UnrealizedARS:    decimal.Zero,
		UnrealizedUSD:    decimal.Zero,
		AvgHoldingDays:   domain.WeightedAverage(holdingDays, quantities),
		Lots:             lots,
	}

	for _, v := range valuations {
		pos.MarketValueARS = pos.MarketValueARS.Add(v.MarketValueARS)
		pos.MarketValueUSD = pos.MarketValueUSD.Add(v.MarketValueUSD)
		pos.UnrealizedARS = pos.UnrealizedARS.Add(v.UnrealizedARS)
		pos.UnrealizedUSD = pos.UnrealizedUSD.Add(v.UnrealizedUSD)
	}

	return pos, nil
}
