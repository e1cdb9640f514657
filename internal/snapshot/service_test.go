package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mervalstat/cedearstat/internal/domain"
	"github.com/mervalstat/cedearstat/internal/fx"
)

type mockTxSource struct {
	portfolioID  int
	portfolioErr error
	txs          []domain.Transaction
	listErr      error
}

func (m *mockTxSource) ListByPortfolio(_ context.Context, _ string) ([]domain.Transaction, error) {
	return m.txs, m.listErr
}

func (m *mockTxSource) GetPortfolioID(_ context.Context, _ string) (int, error) {
	return m.portfolioID, m.portfolioErr
}

type mockQuoteSource struct {
	quotes  map[string]domain.Quote
	err     error
	fetched []string
}

func (m *mockQuoteSource) FetchQuotes(_ context.Context, tickers []string) (map[string]domain.Quote, error) {
	m.fetched = tickers
	return m.quotes, m.err
}

type mockRateSource struct {
	rate fx.Rate
	err  error
}

func (m *mockRateSource) CurrentRate(_ context.Context) (fx.Rate, error) {
	return m.rate, m.err
}

type mockRepo struct {
	saveErr   error
	savedData json.RawMessage
	savedDate time.Time
	latest    *Snapshot
	latestErr error
	byDate    *Snapshot
	byDateErr error
	list      []Snapshot
	listErr   error
}

func (m *mockRepo) Save(_ context.Context, _ int, date time.Time, data json.RawMessage) error {
	m.savedData = data
	m.savedDate = date
	return m.saveErr
}

func (m *mockRepo) GetLatest(_ context.Context, _ string) (*Snapshot, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	return m.latest, nil
}

func (m *mockRepo) GetByDate(_ context.Context, _ string, _ time.Time) (*Snapshot, error) {
	if m.byDateErr != nil {
		return nil, m.byDateErr
	}
	return m.byDate, nil
}

func (m *mockRepo) List(_ context.Context, _ string, _ int) ([]Snapshot, error) {
	return m.list, m.listErr
}

func buyTx(ticker string, qty, priceARS, rate int64, date time.Time) domain.Transaction {
	return domain.Transaction{
		Ticker:    ticker,
		Side:      domain.SideBuy,
		TradeDate: date,
		Quantity:  decimal.NewFromInt(qty),
		PriceARS:  decimal.NewFromInt(priceARS),
		Rate:      decimal.NewFromInt(rate),
		Ratio:     decimal.NewFromInt(10),
	}
}

func TestGenerateSuccess(t *testing.T) {
	tradeDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	txs := &mockTxSource{portfolioID: 1, txs: []domain.Transaction{buyTx("AAPL", 10, 12000, 1200, tradeDate)}}
	quotes := &mockQuoteSource{quotes: map[string]domain.Quote{
		"AAPL": {Ticker: "AAPL", PriceARS: decimal.NewFromInt(15000), Rate: decimal.NewFromInt(1250)},
	}}
	rates := &mockRateSource{rate: fx.Rate{Rate: decimal.NewFromInt(1250), RecordedAt: time.Now()}}
	repo := &mockRepo{}
	svc := NewService(txs, quotes, rates, repo)

	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	summary, err := svc.Generate(context.Background(), "main", date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(summary.Positions))
	}
	if got := summary.TotalValueARS.String(); got != "150000" {
		t.Errorf("TotalValueARS = %s, want 150000", got)
	}
	if len(quotes.fetched) != 1 || quotes.fetched[0] != "AAPL" {
		t.Errorf("fetched tickers = %v, want [AAPL]", quotes.fetched)
	}
	if repo.savedData == nil {
		t.Fatal("expected data to be saved")
	}
	if !repo.savedDate.Equal(date) {
		t.Errorf("saved date = %v, want %v", repo.savedDate, date)
	}

	var stored domain.PortfolioSummary
	if err := json.Unmarshal(repo.savedData, &stored); err != nil {
		t.Fatalf("stored snapshot is not a summary: %v", err)
	}
	if len(stored.Positions) != 1 {
		t.Errorf("stored positions = %d, want 1", len(stored.Positions))
	}
}

func TestGenerateClosedPortfolioFetchesNoQuotes(t *testing.T) {
	tradeDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sell := buyTx("AAPL", 10, 13000, 1250, tradeDate.AddDate(0, 1, 0))
	sell.Side = domain.SideSell
	txs := &mockTxSource{portfolioID: 1, txs: []domain.Transaction{
		buyTx("AAPL", 10, 12000, 1200, tradeDate),
		sell,
	}}
	quotes := &mockQuoteSource{}
	rates := &mockRateSource{rate: fx.Rate{Rate: decimal.NewFromInt(1250)}}
	svc := NewService(txs, quotes, rates, &mockRepo{})

	summary, err := svc.Generate(context.Background(), "main", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quotes.fetched != nil {
		t.Errorf("fetched tickers = %v, want none", quotes.fetched)
	}
	if len(summary.ClosedOperations) != 1 {
		t.Errorf("closed operations = %d, want 1", len(summary.ClosedOperations))
	}
}

func TestGenerateInvalidHistory(t *testing.T) {
	bad := buyTx("AAPL", 10, 12000, 1200, time.Now())
	bad.Rate = decimal.Zero
	txs := &mockTxSource{portfolioID: 1, txs: []domain.Transaction{bad}}
	svc := NewService(txs, &mockQuoteSource{}, &mockRateSource{}, &mockRepo{})

	if _, err := svc.Generate(context.Background(), "main", time.Now()); err == nil {
		t.Fatal("expected error for invalid stored history")
	}
}

func TestGenerateOverdraft(t *testing.T) {
	sell := buyTx("AAPL", 20, 13000, 1250, time.Now())
	sell.Side = domain.SideSell
	txs := &mockTxSource{portfolioID: 1, txs: []domain.Transaction{
		buyTx("AAPL", 10, 12000, 1200, time.Now().AddDate(0, -1, 0)),
		sell,
	}}
	svc := NewService(txs, &mockQuoteSource{}, &mockRateSource{}, &mockRepo{})

	if _, err := svc.Generate(context.Background(), "main", time.Now()); err == nil {
		t.Fatal("expected error for oversold history")
	}
}

func TestGeneratePortfolioNotFound(t *testing.T) {
	txs := &mockTxSource{portfolioErr: errors.New("portfolio not found")}
	svc := NewService(txs, &mockQuoteSource{}, &mockRateSource{}, &mockRepo{})

	if _, err := svc.Generate(context.Background(), "unknown", time.Now()); err == nil {
		t.Fatal("expected error for unknown portfolio")
	}
}

func TestGenerateRepoSaveError(t *testing.T) {
	txs := &mockTxSource{portfolioID: 1}
	rates := &mockRateSource{rate: fx.Rate{Rate: decimal.NewFromInt(1250)}}
	repo := &mockRepo{saveErr: errors.New("save failed")}
	svc := NewService(txs, &mockQuoteSource{}, rates, repo)

	if _, err := svc.Generate(context.Background(), "main", time.Now()); err == nil {
		t.Fatal("expected error from repo save")
	}
}
