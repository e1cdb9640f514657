package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mervalstat/cedearstat/internal/domain"
	"github.com/mervalstat/cedearstat/internal/fx"
	"github.com/mervalstat/cedearstat/internal/ledger"
	"github.com/mervalstat/cedearstat/internal/portfolio"
	"github.com/mervalstat/cedearstat/internal/position"
)

// TransactionSource reads the stored transaction history.
type TransactionSource interface {
	ListByPortfolio(ctx context.Context, slug string) ([]domain.Transaction, error)
	GetPortfolioID(ctx context.Context, slug string) (int, error)
}

// QuoteSource provides current CEDEAR quotes.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, tickers []string) (map[string]domain.Quote, error)
}

// RateSource provides the current CCL rate.
type RateSource interface {
	CurrentRate(ctx context.Context) (fx.Rate, error)
}

// Service rebuilds portfolio summaries from the transaction history and
// stores them as dated snapshots.
type Service struct {
	txs    TransactionSource
	quotes QuoteSource
	rates  RateSource
	repo   Repository
}

// NewService creates a new snapshot Service.
func NewService(txs TransactionSource, quotes QuoteSource, rates RateSource, repo Repository) *Service {
	return &Service{txs: txs, quotes: quotes, rates: rates, repo: repo}
}

// Summarize replays the portfolio's full transaction history and values the
// open lots at current quotes, without persisting anything.
func (s *Service) Summarize(ctx context.Context, slug string, asOf time.Time) (domain.PortfolioSummary, error) {
	if _, err := s.txs.GetPortfolioID(ctx, slug); err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("resolving portfolio: %w", err)
	}
	return s.summarize(ctx, slug, asOf)
}

// Generate builds the summary the same way Summarize does and stores it
// under the given date. The summary is returned as generated.
func (s *Service) Generate(ctx context.Context, slug string, date time.Time) (domain.PortfolioSummary, error) {
	portfolioID, err := s.txs.GetPortfolioID(ctx, slug)
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("resolving portfolio: %w", err)
	}

	summary, err := s.summarize(ctx, slug, date)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("marshaling summary: %w", err)
	}
	if err := s.repo.Save(ctx, portfolioID, date, data); err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("saving snapshot: %w", err)
	}

	slog.Info("snapshot generated", "portfolio", slug, "date", date.Format("2006-01-02"),
		"positions", len(summary.Positions))
	return summary, nil
}

func (s *Service) summarize(ctx context.Context, slug string, asOf time.Time) (domain.PortfolioSummary, error) {
	history, err := s.txs.ListByPortfolio(ctx, slug)
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("loading transactions: %w", err)
	}

	byTicker, rejected := ledger.Prepare(history)
	// Stored rows were validated on ingestion, so rejections here mean the
	// history itself is damaged.
	for _, rej := range rejected {
		slog.Error("stored transaction failed validation", "portfolio", slug, "ticker", rej.Transaction.Ticker, "reason", rej.Reason)
	}
	if len(rejected) > 0 {
		return domain.PortfolioSummary{}, fmt.Errorf("transaction history for %s contains %d invalid rows", slug, len(rejected))
	}

	results, err := position.Reconcile(byTicker)
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("reconciling positions: %w", err)
	}

	openTickers := make([]string, 0, len(results))
	for ticker, res := range results {
		if len(res.OpenLots) > 0 {
			openTickers = append(openTickers, ticker)
		}
	}

	quotes := map[string]domain.Quote{}
	if len(openTickers) > 0 {
		quotes, err = s.quotes.FetchQuotes(ctx, openTickers)
		if err != nil {
			return domain.PortfolioSummary{}, fmt.Errorf("fetching quotes: %w", err)
		}
	}

	rate, err := s.rates.CurrentRate(ctx)
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("getting CCL rate: %w", err)
	}

	summary, err := portfolio.BuildSummary(results, quotes, rate.Rate, asOf)
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("building summary: %w", err)
	}
	return summary, nil
}

// GetLatest retrieves the most recent snapshot for the portfolio.
func (s *Service) GetLatest(ctx context.Context, slug string) (*Snapshot, error) {
	return s.repo.GetLatest(ctx, slug)
}

// GetByDate retrieves a snapshot for a specific date.
func (s *Service) GetByDate(ctx context.Context, slug string, date time.Time) (*Snapshot, error) {
	return s.repo.GetByDate(ctx, slug, date)
}

// List retrieves recent snapshots.
func (s *Service) List(ctx context.Context, slug string, limit int) ([]Snapshot, error) {
	return s.repo.List(ctx, slug, limit)
}
