// Package api exposes the portfolio ledger and analytics over HTTP.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/mervalstat/cedearstat/internal/analytics"
	"github.com/mervalstat/cedearstat/internal/ledger"
	"github.com/mervalstat/cedearstat/internal/snapshot"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, snapshots *snapshot.Service, txs *ledger.Service, rates RateHistory, analysis *analytics.Service, adminAPIKey string) *http.Server {
	handler := NewHandler(snapshots, txs, rates)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/portfolio/{slug}/summary", handler.GetSummary)
	mux.HandleFunc("GET /api/v1/portfolio/{slug}/snapshots/latest", handler.GetLatestSnapshot)
	mux.HandleFunc("GET /api/v1/portfolio/{slug}/snapshots/{date}", handler.GetSnapshotByDate)
	mux.HandleFunc("GET /api/v1/portfolio/{slug}/snapshots", handler.ListSnapshots)
	mux.HandleFunc("GET /api/v1/rates", handler.GetRateHistory)

	mux.Handle("POST /api/v1/portfolio/{slug}/snapshots/generate",
		maybeAuth(adminAPIKey, http.HandlerFunc(handler.GenerateSnapshot)))
	mux.Handle("POST /api/v1/portfolio/{slug}/transactions",
		maybeAuth(adminAPIKey, http.HandlerFunc(handler.IngestTransactions)))

	if analysis != nil {
		analysisHandler := NewAnalyticsHandler(analysis)
		mux.HandleFunc("POST /api/v1/analytics", analysisHandler.RunAnalysis)
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func maybeAuth(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return requireAuth(apiKey, next)
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
