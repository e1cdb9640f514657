package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mervalstat/cedearstat/internal/analytics"
	"github.com/mervalstat/cedearstat/internal/returns"
	"github.com/mervalstat/cedearstat/internal/stats"
)

// AnalyticsHandler provides HTTP endpoints for the statistics pipeline.
type AnalyticsHandler struct {
	analysis *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analysis *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analysis: analysis}
}

// RunAnalysis handles POST /api/v1/analytics. The body is an analysis
// configuration; the response is the full computed result.
func (h *AnalyticsHandler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	var cfg analytics.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.analysis.Analyze(r.Context(), cfg)
	if err != nil {
		switch {
		case errors.Is(err, analytics.ErrInvalidConfig):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, returns.ErrMissingSeries),
			errors.Is(err, returns.ErrInsufficientHistory),
			errors.Is(err, stats.ErrInsufficientHistory):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, stats.ErrDegenerateBenchmark),
			errors.Is(err, stats.ErrZeroVolatility),
			errors.Is(err, stats.ErrNonPositiveValue):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.Error("analysis failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
