// Package export renders portfolio summaries to spreadsheet destinations:
// a Google Sheets report or a local XLSX file.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mervalstat/cedearstat/internal/domain"
)

// PositionRow is one open position as it appears in the POSITIONS sheet.
type PositionRow struct {
	Ticker           string
	Quantity         float64
	UnderlyingShares float64
	AvgCostARS       float64
	AvgCostUSD       float64
	CurrentPriceARS  float64
	MarketValueARS   float64
	MarketValueUSD   float64
	UnrealizedARS    float64
	UnrealizedUSD    float64
	SharePct         float64
	AvgHoldingDays   float64
}

// ClosedRow is one closed operation as it appears in the CLOSED sheet.
type ClosedRow struct {
	Ticker       string
	AcquiredAt   time.Time
	DisposedAt   time.Time
	Quantity     float64
	BuyPriceARS  float64
	SellPriceARS float64
	RealizedARS  float64
	RealizedUSD  float64
	HoldingDays  int
}

// Report is the flattened, spreadsheet-ready form of one summary.
type Report struct {
	GeneratedAt        time.Time
	Rate               float64
	TotalValueARS      float64
	TotalValueUSD      float64
	TotalUnrealizedARS float64
	TotalUnrealizedUSD float64
	TotalRealizedARS   float64
	TotalRealizedUSD   float64
	Positions          []PositionRow
	Closed             []ClosedRow
}

// Writer renders a report to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, report Report) error
}

// Service flattens summaries and delegates writing. It implements the
// post-snapshot hook used by the report worker.
type Service struct {
	writer Writer
}

// NewService creates a new export Service.
func NewService(writer Writer) *Service {
	return &Service{writer: writer}
}

// Export renders the summary and writes it out.
func (s *Service) Export(ctx context.Context, summary domain.PortfolioSummary) error {
	if err := s.writer.Write(ctx, BuildReport(summary)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// BuildReport flattens a summary into spreadsheet rows. Decimals collapse to
// float64 here; the stored snapshot keeps the exact values.
func BuildReport(summary domain.PortfolioSummary) Report {
	positions := lo.Map(summary.Positions, func(p domain.Position, _ int) PositionRow {
		return PositionRow{
			Ticker:           p.Ticker,
			Quantity:         toFloat(p.Quantity),
			UnderlyingShares: toFloat(p.UnderlyingShares),
			AvgCostARS:       toFloat(p.AvgCostARS),
			AvgCostUSD:       toFloat(p.AvgCostUSD),
			CurrentPriceARS:  toFloat(p.CurrentPriceARS),
			MarketValueARS:   toFloat(p.MarketValueARS),
			MarketValueUSD:   toFloat(p.MarketValueUSD),
			UnrealizedARS:    toFloat(p.UnrealizedARS),
			UnrealizedUSD:    toFloat(p.UnrealizedUSD),
			SharePct:         toFloat(p.SharePct),
			AvgHoldingDays:   toFloat(p.AvgHoldingDays),
		}
	})

	closed := lo.Map(summary.ClosedOperations, func(op domain.ClosedOperation, _ int) ClosedRow {
		return ClosedRow{
			Ticker:       op.Ticker,
			AcquiredAt:   op.AcquiredAt,
			DisposedAt:   op.DisposedAt,
			Quantity:     toFloat(op.Quantity),
			BuyPriceARS:  toFloat(op.BuyPriceARS),
			SellPriceARS: toFloat(op.SellPriceARS),
			RealizedARS:  toFloat(op.RealizedARS),
			RealizedUSD:  toFloat(op.RealizedUSD),
			HoldingDays:  op.HoldingDays,
		}
	})

	return Report{
		GeneratedAt:        summary.GeneratedAt,
		Rate:               toFloat(summary.Rate),
		TotalValueARS:      toFloat(summary.TotalValueARS),
		TotalValueUSD:      toFloat(summary.TotalValueUSD),
		TotalUnrealizedARS: toFloat(summary.TotalUnrealizedARS),
		TotalUnrealizedUSD: toFloat(summary.TotalUnrealizedUSD),
		TotalRealizedARS:   toFloat(summary.TotalRealizedARS),
		TotalRealizedUSD:   toFloat(summary.TotalRealizedUSD),
		Positions:          positions,
		Closed:             closed,
	}
}

// positionsHeader is the header row shared by both writers.
var positionsHeader = []any{
	"Ticker", "Quantity", "Underlying", "Avg Cost ARS", "Avg Cost USD",
	"Price ARS", "Value ARS", "Value USD", "P&L ARS", "P&L USD",
	"Share %", "Avg Days Held",
}

// closedHeader is the CLOSED sheet header row.
var closedHeader = []any{
	"Ticker", "Acquired", "Disposed", "Quantity",
	"Buy Price ARS", "Sell Price ARS", "Realized ARS", "Realized USD", "Days Held",
}

// historyHeader is the HISTORY sheet header row; one row is appended per run.
var historyHeader = []any{
	"Date", "CCL Rate", "Value ARS", "Value USD",
	"Unrealized ARS", "Unrealized USD", "Realized ARS", "Realized USD",
}

const sheetDateLayout = "2006-01-02"

func positionValues(report Report) [][]any {
	data := [][]any{positionsHeader}
	for _, p := range report.Positions {
		data = append(data, []any{
			p.Ticker, p.Quantity, p.UnderlyingShares, p.AvgCostARS, p.AvgCostUSD,
			p.CurrentPriceARS, p.MarketValueARS, p.MarketValueUSD,
			p.UnrealizedARS, p.UnrealizedUSD, p.SharePct, p.AvgHoldingDays,
		})
	}
	return data
}

func closedValues(report Report) [][]any {
	data := [][]any{closedHeader}
	for _, op := range report.Closed {
		data = append(data, []any{
			op.Ticker,
			op.AcquiredAt.Format(sheetDateLayout),
			op.DisposedAt.Format(sheetDateLayout),
			op.Quantity, op.BuyPriceARS, op.SellPriceARS,
			op.RealizedARS, op.RealizedUSD, op.HoldingDays,
		})
	}
	return data
}

func historyRow(report Report) []any {
	return []any{
		report.GeneratedAt.UTC().Format(sheetDateLayout),
		report.Rate, report.TotalValueARS, report.TotalValueUSD,
		report.TotalUnrealizedARS, report.TotalUnrealizedUSD,
		report.TotalRealizedARS, report.TotalRealizedUSD,
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
