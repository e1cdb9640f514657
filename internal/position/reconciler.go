// Package position reconstructs open lots and closed operations from an
// ordered transaction history using FIFO lot matching, and marks open lots
// to market in both currencies.
package position

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mervalstat/cedearstat/internal/currency"
	"github.com/mervalstat/cedearstat/internal/domain"
)

// ErrOverdraft indicates a sell whose quantity exceeds the total open
// quantity for its ticker. The sell is rejected as a unit; no lot is
// partially consumed.
var ErrOverdraft = errors.New("sell quantity exceeds open quantity")

// TickerResult is the terminal reconciliation state for one ticker: the
// surviving open lots in acquisition order plus every closed operation.
type TickerResult struct {
	OpenLots []domain.Lot
	Closed   []domain.ClosedOperation
}

// Reconcile processes each ticker's sorted transaction list independently.
// Input must come from ledger.Prepare; the per-ticker order is load-bearing.
// Any overdraft aborts the whole pass: a result missing a ticker would be
// internally inconsistent.
func Reconcile(byTicker map[string][]domain.Transaction) (map[string]TickerResult, error) {
	results := make(map[string]TickerResult, len(byTicker))
	for ticker, txs := range byTicker {
		res, err := ReconcileTicker(txs)
		if err != nil {
			return nil, fmt.Errorf("reconciling %s: %w", ticker, err)
		}
		results[ticker] = res
	}
	return results, nil
}

// ReconcileTicker runs the FIFO queue for a single ticker.
func ReconcileTicker(txs []domain.Transaction) (TickerResult, error) {
	var open []domain.Lot
	var closed []domain.ClosedOperation

	for _, tx := range txs {
		switch tx.Side {
		case domain.SideBuy:
			lot, err := lotFromBuy(tx)
			if err != nil {
				return TickerResult{}, err
			}
			open = append(open, lot)

		case domain.SideSell:
			var err error
			var ops []domain.ClosedOperation
			open, ops, err = applySell(open, tx)
			if err != nil {
				return TickerResult{}, err
			}
			closed = append(closed, ops...)

		default:
			return TickerResult{}, fmt.Errorf("unknown side %q for %s", tx.Side, tx.Ticker)
		}
	}

	return TickerResult{OpenLots: open, Closed: closed}, nil
}

// lotFromBuy converts a buy transaction into an open lot, fixing the USD
// cost basis at the transaction's historical rate.
func lotFromBuy(tx domain.Transaction) (domain.Lot, error) {
	priceUSD, err := currency.ToUSD(tx.PriceARS, tx.Rate)
	if err != nil {
		return domain.Lot{}, fmt.Errorf("converting cost basis for %s: %w", tx.Ticker, err)
	}
	return domain.Lot{
		Ticker:     tx.Ticker,
		Quantity:   tx.Quantity,
		PriceARS:   tx.PriceARS,
		PriceUSD:   priceUSD,
		Rate:       tx.Rate,
		Ratio:      tx.Ratio,
		AcquiredAt: tx.TradeDate,
	}, nil
}

// applySell consumes lots from the head of the queue. The total open
// quantity is checked up front so an overdraft leaves the queue untouched.
func applySell(open []domain.Lot, tx domain.Transaction) ([]domain.Lot, []domain.ClosedOperation, error) {
	totalOpen := lo.Reduce(open, func(acc decimal.Decimal, l domain.Lot, _ int) decimal.Decimal {
		return acc.Add(l.Quantity)
	}, decimal.Zero)
	if tx.Quantity.GreaterThan(totalOpen) {
		return open, nil, fmt.Errorf("%w: %s sell of %s against %s held",
			ErrOverdraft, tx.Ticker, tx.Quantity, totalOpen)
	}

	sellPriceUSD, err := currency.ToUSD(tx.PriceARS, tx.Rate)
	if err != nil {
		return open, nil, fmt.Errorf("converting disposal price for %s: %w", tx.Ticker, err)
	}

	remaining := tx.Quantity
	var ops []domain.ClosedOperation

	for len(open) > 0 && remaining.IsPositive() {
		head := open[0]
		closeQty := decimal.Min(head.Quantity, remaining)

		ops = append(ops, closeLot(head, tx, sellPriceUSD, closeQty))

		if head.Quantity.GreaterThan(closeQty) {
			head.Quantity = head.Quantity.Sub(closeQty)
			open[0] = head
		} else {
			open = open[1:]
		}
		remaining = remaining.Sub(closeQty)
	}

	return open, ops, nil
}

// closeLot emits the realized record for closing closeQty units of a lot.
// The cost side stays at the lot's historical rate, the disposal side at the
// sell transaction's rate; the two are never mixed.
func closeLot(lot domain.Lot, sell domain.Transaction, sellPriceUSD, closeQty decimal.Decimal) domain.ClosedOperation {
	return domain.ClosedOperation{
		Ticker:       lot.Ticker,
		AcquiredAt:   lot.AcquiredAt,
		DisposedAt:   sell.TradeDate,
		Quantity:     closeQty,
		BuyPriceARS:  lot.PriceARS,
		BuyPriceUSD:  lot.PriceUSD,
		SellPriceARS: sell.PriceARS,
		SellPriceUSD: sellPriceUSD,
		RealizedARS:  sell.PriceARS.Sub(lot.PriceARS).Mul(closeQty),
		RealizedUSD:  sellPriceUSD.Sub(lot.PriceUSD).Mul(closeQty),
		HoldingDays:  lot.HoldingDays(sell.TradeDate),
	}
}
