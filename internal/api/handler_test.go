package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mervalstat/cedearstat/internal/domain"
	"github.com/mervalstat/cedearstat/internal/fx"
	"github.com/mervalstat/cedearstat/internal/ledger"
	"github.com/mervalstat/cedearstat/internal/snapshot"
)

type mockSnapshotRepo struct {
	snapshots     []snapshot.Snapshot
	lastListLimit int
}

func (m *mockSnapshotRepo) Save(_ context.Context, _ int, _ time.Time, _ json.RawMessage) error {
	return nil
}

func (m *mockSnapshotRepo) GetLatest(_ context.Context, _ string) (*snapshot.Snapshot, error) {
	if len(m.snapshots) == 0 {
		return nil, snapshot.ErrNotFound
	}
	return &m.snapshots[0], nil
}

func (m *mockSnapshotRepo) GetByDate(_ context.Context, _ string, date time.Time) (*snapshot.Snapshot, error) {
	for _, s := range m.snapshots {
		if s.SnapshotDate.Equal(date) {
			return &s, nil
		}
	}
	return nil, snapshot.ErrNotFound
}

func (m *mockSnapshotRepo) List(_ context.Context, _ string, limit int) ([]snapshot.Snapshot, error) {
	m.lastListLimit = limit
	if limit > len(m.snapshots) {
		limit = len(m.snapshots)
	}
	return m.snapshots[:limit], nil
}

type mockLedgerRepo struct {
	txs      []domain.Transaction
	known    bool
	appended []domain.Transaction
}

func (m *mockLedgerRepo) Append(_ context.Context, _ int, tx domain.Transaction) (int64, error) {
	m.appended = append(m.appended, tx)
	return int64(len(m.appended)), nil
}

func (m *mockLedgerRepo) ListByPortfolio(_ context.Context, _ string) ([]domain.Transaction, error) {
	return m.txs, nil
}

func (m *mockLedgerRepo) GetPortfolioID(_ context.Context, _ string) (int, error) {
	if !m.known {
		return 0, ledger.ErrPortfolioNotFound
	}
	return 1, nil
}

func (m *mockLedgerRepo) EnsurePortfolio(_ context.Context, _, _ string) (int, error) {
	return 1, nil
}

type stubQuotes struct{ quotes map[string]domain.Quote }

func (s *stubQuotes) FetchQuotes(_ context.Context, _ []string) (map[string]domain.Quote, error) {
	return s.quotes, nil
}

type stubRates struct {
	history  []fx.Rate
	lastFrom time.Time
	lastTo   time.Time
}

func (s *stubRates) CurrentRate(_ context.Context) (fx.Rate, error) {
	return fx.Rate{Rate: decimal.NewFromInt(1250), RecordedAt: time.Now()}, nil
}

func (s *stubRates) History(_ context.Context, from, to time.Time) ([]fx.Rate, error) {
	if from.After(to) {
		return nil, fx.ErrInvalidRange
	}
	s.lastFrom, s.lastTo = from, to
	return s.history, nil
}

func newTestHandler(ledgerRepo *mockLedgerRepo, snapRepo *mockSnapshotRepo, quotes map[string]domain.Quote) *Handler {
	rates := &stubRates{}
	svc := snapshot.NewService(ledgerRepo, &stubQuotes{quotes: quotes}, rates, snapRepo)
	return NewHandler(svc, ledger.NewService(ledgerRepo), rates)
}

func TestGetSummarySuccess(t *testing.T) {
	ledgerRepo := &mockLedgerRepo{known: true, txs: []domain.Transaction{{
		Ticker:    "AAPL",
		Side:      domain.SideBuy,
		TradeDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Quantity:  decimal.NewFromInt(10),
		PriceARS:  decimal.NewFromInt(12000),
		Rate:      decimal.NewFromInt(1200),
		Ratio:     decimal.NewFromInt(10),
	}}}
	quotes := map[string]domain.Quote{
		"AAPL": {Ticker: "AAPL", PriceARS: decimal.NewFromInt(15000), Rate: decimal.NewFromInt(1250)},
	}
	handler := newTestHandler(ledgerRepo, &mockSnapshotRepo{}, quotes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/main/summary", nil)
	req.SetPathValue("slug", "main")
	w := httptest.NewRecorder()
	handler.GetSummary(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var summary domain.PortfolioSummary
	json.NewDecoder(w.Body).Decode(&summary)
	if len(summary.Positions) != 1 {
		t.Errorf("positions = %d, want 1", len(summary.Positions))
	}
}

func TestGetSummaryUnknownPortfolio(t *testing.T) {
	handler := newTestHandler(&mockLedgerRepo{}, &mockSnapshotRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/nope/summary", nil)
	req.SetPathValue("slug", "nope")
	w := httptest.NewRecorder()
	handler.GetSummary(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetSummaryOversoldHistory(t *testing.T) {
	ledgerRepo := &mockLedgerRepo{known: true, txs: []domain.Transaction{{
		Ticker:    "AAPL",
		Side:      domain.SideSell,
		TradeDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Quantity:  decimal.NewFromInt(10),
		PriceARS:  decimal.NewFromInt(12000),
		Rate:      decimal.NewFromInt(1200),
		Ratio:     decimal.NewFromInt(10),
	}}}
	handler := newTestHandler(ledgerRepo, &mockSnapshotRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/main/summary", nil)
	req.SetPathValue("slug", "main")
	w := httptest.NewRecorder()
	handler.GetSummary(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestGetLatestSnapshotSuccess(t *testing.T) {
	data, _ := json.Marshal(map[string]string{"test": "data"})
	snapRepo := &mockSnapshotRepo{snapshots: []snapshot.Snapshot{
		{ID: 1, PortfolioID: 1, SnapshotDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), Data: data},
	}}
	handler := newTestHandler(&mockLedgerRepo{known: true}, snapRepo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/main/snapshots/latest", nil)
	req.SetPathValue("slug", "main")
	w := httptest.NewRecorder()
	handler.GetLatestSnapshot(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var result snapshot.Snapshot
	json.NewDecoder(w.Body).Decode(&result)
	if result.ID != 1 {
		t.Errorf("snapshot ID = %d, want 1", result.ID)
	}
}

func TestGetLatestSnapshotNotFound(t *testing.T) {
	handler := newTestHandler(&mockLedgerRepo{known: true}, &mockSnapshotRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/main/snapshots/latest", nil)
	req.SetPathValue("slug", "main")
	w := httptest.NewRecorder()
	handler.GetLatestSnapshot(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetSnapshotByDateInvalid(t *testing.T) {
	handler := newTestHandler(&mockLedgerRepo{known: true}, &mockSnapshotRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/main/snapshots/not-a-date", nil)
	req.SetPathValue("slug", "main")
	req.SetPathValue("date", "not-a-date")
	w := httptest.NewRecorder()
	handler.GetSnapshotByDate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListSnapshotsLimitCappedAt365(t *testing.T) {
	data, _ := json.Marshal(map[string]string{})
	snapRepo := &mockSnapshotRepo{snapshots: []snapshot.Snapshot{{ID: 1, Data: data}}}
	handler := newTestHandler(&mockLedgerRepo{known: true}, snapRepo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolio/main/snapshots?limit=9999", nil)
	req.SetPathValue("slug", "main")
	w := httptest.NewRecorder()
	handler.ListSnapshots(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if snapRepo.lastListLimit != 365 {
		t.Errorf("limit passed to repo = %d, want 365 (should be capped)", snapRepo.lastListLimit)
	}
}

func TestGetRateHistory(t *testing.T) {
	rates := &stubRates{history: []fx.Rate{
		{Rate: decimal.NewFromInt(1200), RecordedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{Rate: decimal.NewFromInt(1250), RecordedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)},
	}}
	handler := NewHandler(nil, nil, rates)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rates?from=2026-03-01&to=2026-03-02", nil)
	w := httptest.NewRecorder()
	handler.GetRateHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var got []fx.Rate
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) != 2 {
		t.Errorf("rates = %d, want 2", len(got))
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !rates.lastFrom.Equal(want) {
		t.Errorf("from = %v, want %v", rates.lastFrom, want)
	}
	// The closing day is included whole.
	if !rates.lastTo.After(time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("to = %v, want end of 2026-03-02", rates.lastTo)
	}
}

func TestGetRateHistoryBadDate(t *testing.T) {
	handler := NewHandler(nil, nil, &stubRates{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rates?from=yesterday", nil)
	w := httptest.NewRecorder()
	handler.GetRateHistory(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetRateHistoryInvertedRange(t *testing.T) {
	handler := NewHandler(nil, nil, &stubRates{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rates?from=2026-03-02&to=2026-03-01", nil)
	w := httptest.NewRecorder()
	handler.GetRateHistory(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestIngestTransactionsPartial(t *testing.T) {
	ledgerRepo := &mockLedgerRepo{known: true}
	handler := newTestHandler(ledgerRepo, &mockSnapshotRepo{}, nil)

	body := `[
		{"ticker":"AAPL","side":"buy","tradeDate":"2026-03-02T00:00:00Z","quantity":"10","priceArs":"12000","rate":"1200","ratio":"10"},
		{"ticker":"MSFT","side":"buy","tradeDate":"2026-03-02T00:00:00Z","quantity":"10","priceArs":"12000","rate":"0","ratio":"10"}
	]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/main/transactions", strings.NewReader(body))
	req.SetPathValue("slug", "main")
	w := httptest.NewRecorder()
	handler.IngestTransactions(w, req)

	if w.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207: %s", w.Code, w.Body.String())
	}

	var result ledger.IngestResult
	json.NewDecoder(w.Body).Decode(&result)
	if len(result.Accepted) != 1 || len(result.Rejected) != 1 {
		t.Errorf("accepted/rejected = %d/%d, want 1/1", len(result.Accepted), len(result.Rejected))
	}
	if len(ledgerRepo.appended) != 1 {
		t.Errorf("stored = %d, want 1", len(ledgerRepo.appended))
	}
}

func TestIngestTransactionsEmptyBatch(t *testing.T) {
	handler := newTestHandler(&mockLedgerRepo{known: true}, &mockSnapshotRepo{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/main/transactions", strings.NewReader(`[]`))
	req.SetPathValue("slug", "main")
	w := httptest.NewRecorder()
	handler.IngestTransactions(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestIngestTransactionsUnknownPortfolio(t *testing.T) {
	handler := newTestHandler(&mockLedgerRepo{}, &mockSnapshotRepo{}, nil)

	body := `[{"ticker":"AAPL","side":"buy","tradeDate":"2026-03-02T00:00:00Z","quantity":"10","priceArs":"12000","rate":"1200","ratio":"10"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/nope/transactions", strings.NewReader(body))
	req.SetPathValue("slug", "nope")
	w := httptest.NewRecorder()
	handler.IngestTransactions(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
