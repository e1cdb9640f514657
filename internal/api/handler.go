package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mervalstat/cedearstat/internal/domain"
	"github.com/mervalstat/cedearstat/internal/fx"
	"github.com/mervalstat/cedearstat/internal/ledger"
	"github.com/mervalstat/cedearstat/internal/position"
	"github.com/mervalstat/cedearstat/internal/snapshot"
)

// RateHistory reads stored CCL rate observations.
type RateHistory interface {
	History(ctx context.Context, from, to time.Time) ([]fx.Rate, error)
}

// Handler provides HTTP endpoints for the portfolio API.
type Handler struct {
	snapshots *snapshot.Service
	txs       *ledger.Service
	rates     RateHistory
}

// NewHandler creates a new API handler.
func NewHandler(snapshots *snapshot.Service, txs *ledger.Service, rates RateHistory) *Handler {
	return &Handler{snapshots: snapshots, txs: txs, rates: rates}
}

// GetSummary handles GET /api/v1/portfolio/{slug}/summary. The summary is
// computed live from the full transaction history.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	summary, err := h.snapshots.Summarize(r.Context(), slug, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ledger.ErrPortfolioNotFound) {
			writeError(w, http.StatusNotFound, "portfolio not found")
			return
		}
		if errors.Is(err, position.ErrOverdraft) {
			slog.Error("transaction history oversold", "portfolio", slug, "error", err)
			writeError(w, http.StatusConflict, "transaction history is inconsistent")
			return
		}
		slog.Error("failed to build summary", "portfolio", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetLatestSnapshot handles GET /api/v1/portfolio/{slug}/snapshots/latest.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	s, err := h.snapshots.GetLatest(r.Context(), slug)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshots found")
			return
		}
		slog.Error("failed to get latest snapshot", "portfolio", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetSnapshotByDate handles GET /api/v1/portfolio/{slug}/snapshots/{date}.
func (h *Handler) GetSnapshotByDate(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	dateStr := r.PathValue("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	s, err := h.snapshots.GetByDate(r.Context(), slug, date)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found for date")
			return
		}
		slog.Error("failed to get snapshot by date", "portfolio", slug, "date", dateStr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListSnapshots handles GET /api/v1/portfolio/{slug}/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	slug := r.PathValue("slug")
	snapshots, err := h.snapshots.List(r.Context(), slug, limit)
	if err != nil {
		slog.Error("failed to list snapshots", "portfolio", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// GenerateSnapshot handles POST /api/v1/portfolio/{slug}/snapshots/generate.
func (h *Handler) GenerateSnapshot(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	data, err := h.snapshots.Generate(r.Context(), slug, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ledger.ErrPortfolioNotFound) {
			writeError(w, http.StatusNotFound, "portfolio not found")
			return
		}
		slog.Error("failed to generate snapshot", "portfolio", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate snapshot")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// GetRateHistory handles GET /api/v1/rates. The range defaults to the last
// 30 days; from/to accept YYYY-MM-DD.
func (h *Handler) GetRateHistory(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		// Include observations recorded during the closing day.
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	rates, err := h.rates.History(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, fx.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, "from is after to")
			return
		}
		slog.Error("failed to get rate history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

// IngestTransactions handles POST /api/v1/portfolio/{slug}/transactions.
// The body is a JSON array of transactions; valid entries are appended and
// invalid ones come back with a reason.
func (h *Handler) IngestTransactions(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	var incoming []domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(incoming) == 0 {
		writeError(w, http.StatusBadRequest, "empty transaction batch")
		return
	}

	result, err := h.txs.Ingest(r.Context(), slug, incoming)
	if err != nil {
		if errors.Is(err, ledger.ErrPortfolioNotFound) {
			writeError(w, http.StatusNotFound, "portfolio not found")
			return
		}
		slog.Error("failed to ingest transactions", "portfolio", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusOK
	if len(result.Rejected) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
