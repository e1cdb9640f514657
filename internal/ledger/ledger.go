// Package ledger validates and orders the raw transaction stream before
// position reconciliation. Transactions failing validation are rejected
// individually; the rest of the batch proceeds.
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/mervalstat/cedearstat/internal/domain"
)

// RejectedTransaction pairs an invalid transaction with the reason it was
// refused. The batch as a whole still succeeds.
type RejectedTransaction struct {
	Transaction domain.Transaction `json:"transaction"`
	Reason      string             `json:"reason"`
}

func (r RejectedTransaction) Error() string {
	return fmt.Sprintf("invalid transaction %s %s: %s", r.Transaction.Side, r.Transaction.Ticker, r.Reason)
}

// Normalize canonicalizes the ticker so grouping and quote lookups agree.
func Normalize(tx domain.Transaction) domain.Transaction {
	tx.Ticker = strings.ToUpper(strings.TrimSpace(tx.Ticker))
	return tx
}

// Validate checks a single transaction against the ledger rules.
// Returns an empty string when the transaction is acceptable.
func Validate(tx domain.Transaction) string {
	switch {
	case strings.TrimSpace(tx.Ticker) == "":
		return "ticker cannot be empty"
	case !tx.Side.IsValid():
		return fmt.Sprintf("side must be buy or sell, got %q", tx.Side)
	case !tx.Quantity.IsPositive():
		return "quantity must be positive"
	case tx.PriceARS.IsNegative():
		return "price cannot be negative"
	case !tx.Rate.IsPositive():
		return "rate must be positive"
	case !tx.Ratio.IsPositive():
		return "conversion ratio must be positive"
	case tx.TradeDate.IsZero():
		return "trade date is required"
	}
	return ""
}

// Prepare validates a batch and returns the accepted transactions grouped by
// ticker, sorted ascending by trade date with a stable tie-break on
// submission order, alongside the rejections. Duplicates are not detected
// here; deduplication belongs to the submitting collaborator.
func Prepare(txs []domain.Transaction) (map[string][]domain.Transaction, []RejectedTransaction) {
	var rejected []RejectedTransaction
	accepted := make([]domain.Transaction, 0, len(txs))

	for i, tx := range txs {
		if reason := Validate(tx); reason != "" {
			rejected = append(rejected, RejectedTransaction{Transaction: tx, Reason: reason})
			continue
		}
		tx = Normalize(tx)
		tx.Seq = i
		accepted = append(accepted, tx)
	}

	byTicker := lo.GroupBy(accepted, func(tx domain.Transaction) string {
		return tx.Ticker
	})

	for ticker := range byTicker {
		list := byTicker[ticker]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].TradeDate.Equal(list[j].TradeDate) {
				return list[i].Seq < list[j].Seq
			}
			return list[i].TradeDate.Before(list[j].TradeDate)
		})
		byTicker[ticker] = list
	}

	return byTicker, rejected
}
