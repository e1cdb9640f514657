// Package analytics orchestrates the statistics pipeline: validated
// configuration in, immutable OptimizerResult out.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/mervalstat/cedearstat/internal/domain"
	"github.com/mervalstat/cedearstat/internal/returns"
	"github.com/mervalstat/cedearstat/internal/stats"
)

// ErrInvalidConfig indicates a rejected analysis configuration.
var ErrInvalidConfig = errors.New("invalid analysis config")

// weightTolerance bounds the allowed deviation of the weight sum from 1.
const weightTolerance = 1e-6

// Config fully specifies one analysis pass. Every field is explicit so the
// computation below is a pure function of this value plus price snapshots.
type Config struct {
	Tickers              []string           `json:"tickers"`
	Weights              map[string]float64 `json:"weights"`
	Benchmark            string             `json:"benchmark"`
	RiskFreeRate         float64            `json:"riskFreeRate"`
	PeriodsPerYear       int                `json:"periodsPerYear"`
	CorrelationThreshold float64            `json:"correlationThreshold"`
}

// Validate checks the configuration once and fills defaulted fields.
func (c *Config) Validate() error {
	if len(c.Tickers) == 0 {
		return fmt.Errorf("%w: no tickers", ErrInvalidConfig)
	}
	if c.Benchmark == "" {
		return fmt.Errorf("%w: benchmark is required", ErrInvalidConfig)
	}

	sum := 0.0
	for _, ticker := range c.Tickers {
		w, ok := c.Weights[ticker]
		if !ok {
			return fmt.Errorf("%w: no weight for %s", ErrInvalidConfig, ticker)
		}
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidConfig, ticker)
		}
		sum += w
	}
	if len(c.Weights) != len(c.Tickers) {
		return fmt.Errorf("%w: weights reference unknown tickers", ErrInvalidConfig)
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidConfig, sum)
	}

	if c.PeriodsPerYear == 0 {
		c.PeriodsPerYear = stats.DefaultPeriodsPerYear
	}
	if c.CorrelationThreshold == 0 {
		c.CorrelationThreshold = stats.DefaultCorrelationThreshold
	}
	return nil
}

// HistoryProvider supplies daily price history for one ticker.
type HistoryProvider interface {
	DailyHistory(ctx context.Context, ticker string) ([]domain.PricePoint, error)
}

// Service fetches histories through the provider and runs the pure pipeline.
type Service struct {
	history      HistoryProvider
	riskFreeRate float64
}

// NewService creates a new analytics Service. riskFreeRate is the annualized
// rate applied when a request leaves its own rate unset.
func NewService(history HistoryProvider, riskFreeRate float64) *Service {
	return &Service{history: history, riskFreeRate: riskFreeRate}
}

// Analyze validates the config, gathers the required price snapshots, and
// computes the result. Fetching happens entirely up front; Compute itself
// does no I/O.
func (s *Service) Analyze(ctx context.Context, cfg Config) (domain.OptimizerResult, error) {
	if cfg.RiskFreeRate == 0 {
		cfg.RiskFreeRate = s.riskFreeRate
	}
	if err := cfg.Validate(); err != nil {
		return domain.OptimizerResult{}, err
	}

	series := make(map[string][]domain.PricePoint, len(cfg.Tickers)+1)
	for _, ticker := range append(append([]string{}, cfg.Tickers...), cfg.Benchmark) {
		if _, ok := series[ticker]; ok {
			continue
		}
		history, err := s.history.DailyHistory(ctx, ticker)
		if err != nil {
			return domain.OptimizerResult{}, fmt.Errorf("fetching history for %s: %w", ticker, err)
		}
		series[ticker] = history
	}

	slog.Debug("analytics: histories fetched", "tickers", len(cfg.Tickers), "benchmark", cfg.Benchmark)
	return Compute(cfg, series, time.Now().UTC())
}

// Compute runs the full statistics pipeline over immutable price snapshots.
// It is a pure function: same inputs, same OptimizerResult.
func Compute(cfg Config, series map[string][]domain.PricePoint, asOf time.Time) (domain.OptimizerResult, error) {
	if err := cfg.Validate(); err != nil {
		return domain.OptimizerResult{}, err
	}

	tickers := append([]string{}, cfg.Tickers...)
	sort.Strings(tickers)

	all, err := returns.BuildAssetData(series, append(append([]string{}, tickers...), cfg.Benchmark))
	if err != nil {
		return domain.OptimizerResult{}, err
	}
	assets, benchmark := all[:len(all)-1], all[len(all)-1]

	perf, err := returns.BuildPerformance(assets, cfg.Weights, benchmark)
	if err != nil {
		return domain.OptimizerResult{}, err
	}

	engine := stats.Engine{
		PeriodsPerYear:       cfg.PeriodsPerYear,
		RiskFreeRate:         cfg.RiskFreeRate,
		CorrelationThreshold: cfg.CorrelationThreshold,
	}

	metrics, err := portfolioMetrics(engine, assets, benchmark, cfg.Weights, perf)
	if err != nil {
		return domain.OptimizerResult{}, err
	}
	benchMetrics, err := benchmarkMetrics(engine, benchmark, perf)
	if err != nil {
		return domain.OptimizerResult{}, err
	}

	return domain.OptimizerResult{
		GeneratedAt:      asOf,
		Benchmark:        cfg.Benchmark,
		Weights:          cfg.Weights,
		Assets:           assets,
		Performance:      perf,
		Correlation:      engine.CorrelationMatrix(assets, benchmark),
		Metrics:          metrics,
		BenchmarkMetrics: benchMetrics,
	}, nil
}

func portfolioMetrics(engine stats.Engine, assets []domain.AssetData, benchmark domain.AssetData, weights map[string]float64, perf domain.PerformanceData) (domain.PortfolioMetrics, error) {
	combined := returns.PortfolioReturns(assets, weights)

	volatility, err := engine.AnnualizedVolatility(combined)
	if err != nil {
		return domain.PortfolioMetrics{}, fmt.Errorf("portfolio volatility: %w", err)
	}
	beta, err := engine.Beta(combined, benchmark.Returns)
	if err != nil {
		return domain.PortfolioMetrics{}, fmt.Errorf("portfolio beta: %w", err)
	}
	cagr, err := stats.CAGRFromSeries(perf.Dates, perf.Portfolio)
	if err != nil {
		return domain.PortfolioMetrics{}, fmt.Errorf("portfolio CAGR: %w", err)
	}
	trailing, err := stats.TrailingYearReturn(perf.Dates, perf.Portfolio)
	if err != nil {
		return domain.PortfolioMetrics{}, fmt.Errorf("portfolio trailing return: %w", err)
	}
	sharpe, err := engine.SharpeRatio(cagr, volatility)
	if err != nil {
		return domain.PortfolioMetrics{}, fmt.Errorf("portfolio sharpe: %w", err)
	}

	return domain.PortfolioMetrics{
		Volatility:         volatility,
		Beta:               beta,
		CAGR:               cagr,
		TrailingYearReturn: trailing,
		SharpeRatio:        sharpe,
	}, nil
}

func benchmarkMetrics(engine stats.Engine, benchmark domain.AssetData, perf domain.PerformanceData) (domain.BenchmarkMetrics, error) {
	volatility, err := engine.AnnualizedVolatility(benchmark.Returns)
	if err != nil {
		return domain.BenchmarkMetrics{}, fmt.Errorf("benchmark volatility: %w", err)
	}
	cagr, err := stats.CAGRFromSeries(perf.Dates, perf.Benchmark)
	if err != nil {
		return domain.BenchmarkMetrics{}, fmt.Errorf("benchmark CAGR: %w", err)
	}
	trailing, err := stats.TrailingYearReturn(perf.Dates, perf.Benchmark)
	if err != nil {
		return domain.BenchmarkMetrics{}, fmt.Errorf("benchmark trailing return: %w", err)
	}

	return domain.BenchmarkMetrics{
		Ticker:             benchmark.Ticker,
		Volatility:         volatility,
		CAGR:               cagr,
		TrailingYearReturn: trailing,
	}, nil
}
