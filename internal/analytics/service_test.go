package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mervalstat/cedearstat/internal/domain"
	"github.com/mervalstat/cedearstat/internal/returns"
	"github.com/mervalstat/cedearstat/internal/stats"
)

// monthlySeries generates a price history starting at 100, applying the
// given return cycle one step per month.
func monthlySeries(start time.Time, points int, cycle []float64) []domain.PricePoint {
	series := make([]domain.PricePoint, 0, points)
	price := 100.0
	for i := 0; i < points; i++ {
		series = append(series, domain.PricePoint{Date: start.AddDate(0, i, 0), Close: price})
		price *= 1 + cycle[i%len(cycle)]
	}
	return series
}

func validConfig() Config {
	return Config{
		Tickers:   []string{"AAPL", "MSFT"},
		Weights:   map[string]float64{"AAPL": 0.5, "MSFT": 0.5},
		Benchmark: "SPY",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no tickers", func(c *Config) { c.Tickers = nil }},
		{"no benchmark", func(c *Config) { c.Benchmark = "" }},
		{"missing weight", func(c *Config) { delete(c.Weights, "MSFT") }},
		{"negative weight", func(c *Config) { c.Weights["AAPL"] = -0.5; c.Weights["MSFT"] = 1.5 }},
		{"sum below one", func(c *Config) { c.Weights["MSFT"] = 0.4 }},
		{"unknown weight ticker", func(c *Config) { c.Weights["KO"] = 0.0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.PeriodsPerYear != stats.DefaultPeriodsPerYear {
		t.Errorf("PeriodsPerYear = %d, want %d", cfg.PeriodsPerYear, stats.DefaultPeriodsPerYear)
	}
	if cfg.CorrelationThreshold != stats.DefaultCorrelationThreshold {
		t.Errorf("CorrelationThreshold = %v, want %v", cfg.CorrelationThreshold, stats.DefaultCorrelationThreshold)
	}
}

func TestConfigValidateWeightTolerance(t *testing.T) {
	cfg := validConfig()
	cfg.Weights["MSFT"] = 0.5 + 5e-7
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with sub-tolerance drift = %v, want nil", err)
	}
}

func TestCompute(t *testing.T) {
	start := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	cycle := []float64{0.02, -0.01}
	series := map[string][]domain.PricePoint{
		"AAPL": monthlySeries(start, 25, cycle),
		"MSFT": monthlySeries(start, 25, cycle),
		"SPY":  monthlySeries(start, 25, cycle),
	}

	cfg := validConfig()
	cfg.PeriodsPerYear = 12

	result, err := Compute(cfg, series, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Compute() = %v", err)
	}

	if result.Benchmark != "SPY" {
		t.Errorf("Benchmark = %q, want SPY", result.Benchmark)
	}
	if got := len(result.Assets); got != 2 {
		t.Fatalf("len(Assets) = %d, want 2", got)
	}
	if result.Assets[0].Ticker != "AAPL" || result.Assets[1].Ticker != "MSFT" {
		t.Errorf("asset order = %s, %s, want AAPL, MSFT", result.Assets[0].Ticker, result.Assets[1].Ticker)
	}

	// Portfolio and benchmark move in lockstep, so beta must be 1.
	if math.Abs(result.Metrics.Beta-1) > 1e-9 {
		t.Errorf("Beta = %v, want 1", result.Metrics.Beta)
	}
	if result.Metrics.Volatility <= 0 {
		t.Errorf("Volatility = %v, want > 0", result.Metrics.Volatility)
	}
	// Each two-month cycle compounds to 1.02*0.99 > 1, so growth is positive.
	if result.Metrics.CAGR <= 0 {
		t.Errorf("CAGR = %v, want > 0", result.Metrics.CAGR)
	}
	if result.Metrics.TrailingYearReturn <= 0 {
		t.Errorf("TrailingYearReturn = %v, want > 0", result.Metrics.TrailingYearReturn)
	}
	if math.Abs(result.BenchmarkMetrics.CAGR-result.Metrics.CAGR) > 1e-9 {
		t.Errorf("benchmark CAGR = %v, portfolio CAGR = %v, want equal", result.BenchmarkMetrics.CAGR, result.Metrics.CAGR)
	}
	if result.BenchmarkMetrics.Ticker != "SPY" {
		t.Errorf("BenchmarkMetrics.Ticker = %q, want SPY", result.BenchmarkMetrics.Ticker)
	}

	// Matrix covers both assets plus the benchmark column.
	if got := len(result.Correlation.Tickers); got != 3 {
		t.Fatalf("len(Correlation.Tickers) = %d, want 3", got)
	}
	// Identical series correlate perfectly and must surface as a high pair.
	if len(result.Correlation.HighPairs) == 0 {
		t.Error("Correlation.HighPairs is empty, want AAPL/MSFT flagged")
	}

	if got := len(result.Performance.Portfolio); got != 25 {
		t.Errorf("len(Performance.Portfolio) = %d, want 25", got)
	}
	if result.Performance.Portfolio[0] != returns.BaseIndex {
		t.Errorf("Performance.Portfolio[0] = %v, want %v", result.Performance.Portfolio[0], returns.BaseIndex)
	}
}

func TestComputeShortHistory(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	series := map[string][]domain.PricePoint{
		"AAPL": monthlySeries(start, 3, []float64{0.02, -0.01}),
		"MSFT": monthlySeries(start, 3, []float64{0.02, -0.01}),
		"SPY":  monthlySeries(start, 3, []float64{0.02, -0.01}),
	}

	cfg := validConfig()
	if _, err := Compute(cfg, series, time.Now()); !errors.Is(err, stats.ErrInsufficientHistory) {
		t.Errorf("Compute() with 3 points = %v, want ErrInsufficientHistory", err)
	}
}

type stubHistory struct {
	series map[string][]domain.PricePoint
	calls  map[string]int
	err    error
}

func (s *stubHistory) DailyHistory(_ context.Context, ticker string) ([]domain.PricePoint, error) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[ticker]++
	if s.err != nil {
		return nil, s.err
	}
	return s.series[ticker], nil
}

func TestServiceAnalyze(t *testing.T) {
	start := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	cycle := []float64{0.02, -0.01}
	stub := &stubHistory{series: map[string][]domain.PricePoint{
		"AAPL": monthlySeries(start, 25, cycle),
		"MSFT": monthlySeries(start, 25, cycle),
		"SPY":  monthlySeries(start, 25, cycle),
	}}

	svc := NewService(stub, 0)
	result, err := svc.Analyze(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("Analyze() = %v", err)
	}
	if result.GeneratedAt.IsZero() {
		t.Error("GeneratedAt is zero")
	}
	for _, ticker := range []string{"AAPL", "MSFT", "SPY"} {
		if stub.calls[ticker] != 1 {
			t.Errorf("DailyHistory(%s) called %d times, want 1", ticker, stub.calls[ticker])
		}
	}
}

func TestServiceAnalyzeFetchError(t *testing.T) {
	wantErr := errors.New("upstream down")
	svc := NewService(&stubHistory{err: wantErr}, 0)
	if _, err := svc.Analyze(context.Background(), validConfig()); !errors.Is(err, wantErr) {
		t.Errorf("Analyze() = %v, want wrapped upstream error", err)
	}
}
