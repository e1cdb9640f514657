// Package stats computes portfolio-level risk and return figures from
// aligned periodic return series.
package stats

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mervalstat/cedearstat/internal/domain"
)

// Sentinel errors for degenerate statistical inputs.
var (
	ErrInsufficientHistory = errors.New("insufficient history for statistic")
	ErrDegenerateBenchmark = errors.New("benchmark variance is zero")
	ErrNonPositiveValue    = errors.New("growth rate requires positive endpoint values")
	ErrZeroVolatility      = errors.New("volatility is zero")
)

const (
	// DefaultPeriodsPerYear assumes daily series over trading days.
	DefaultPeriodsPerYear = 252
	// DefaultCorrelationThreshold marks pairs worth surfacing separately.
	DefaultCorrelationThreshold = 0.7
)

// Engine computes statistics under a fixed sampling and rate convention.
// The zero value is not usable; construct with New.
type Engine struct {
	PeriodsPerYear       int
	RiskFreeRate         float64
	CorrelationThreshold float64
}

// New returns an Engine with the default daily-sampling convention.
// A zero risk-free rate keeps market assumptions out of the engine.
func New() Engine {
	return Engine{
		PeriodsPerYear:       DefaultPeriodsPerYear,
		RiskFreeRate:         0,
		CorrelationThreshold: DefaultCorrelationThreshold,
	}
}

// AnnualizedVolatility is the sample standard deviation of periodic returns
// scaled by the square root of periods per year.
func (e Engine) AnnualizedVolatility(returns []float64) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: %d returns", ErrInsufficientHistory, len(returns))
	}
	return stat.StdDev(returns, nil) * math.Sqrt(float64(e.PeriodsPerYear)), nil
}

// Beta is cov(portfolio, benchmark) / var(benchmark) over paired returns.
func (e Engine) Beta(portfolio, benchmark []float64) (float64, error) {
	if len(portfolio) != len(benchmark) || len(portfolio) < 2 {
		return 0, fmt.Errorf("%w: %d/%d paired returns", ErrInsufficientHistory, len(portfolio), len(benchmark))
	}
	variance := stat.Variance(benchmark, nil)
	if variance == 0 {
		return 0, ErrDegenerateBenchmark
	}
	return stat.Covariance(portfolio, benchmark, nil) / variance, nil
}

// CAGR is the compound annual growth rate between two values over a span of years.
func CAGR(startValue, endValue, years float64) (float64, error) {
	if startValue <= 0 || endValue <= 0 {
		return 0, fmt.Errorf("%w: start %v, end %v", ErrNonPositiveValue, startValue, endValue)
	}
	if years <= 0 {
		return 0, fmt.Errorf("%w: span of %v years", ErrInsufficientHistory, years)
	}
	return math.Pow(endValue/startValue, 1/years) - 1, nil
}

// CAGRFromSeries computes CAGR over a dated value series using the actual
// calendar span between the first and last points.
func CAGRFromSeries(dates []time.Time, values []float64) (float64, error) {
	if len(dates) < 2 || len(dates) != len(values) {
		return 0, fmt.Errorf("%w: %d dated values", ErrInsufficientHistory, len(values))
	}
	years := dates[len(dates)-1].Sub(dates[0]).Hours() / (24 * 365.25)
	return CAGR(values[0], values[len(values)-1], years)
}

// TrailingYearReturn is the simple return over the final twelve months of a
// dated value series: final value over the value one year earlier, minus 1.
// The series must reach back at least twelve months before its end.
func TrailingYearReturn(dates []time.Time, values []float64) (float64, error) {
	if len(dates) < 2 || len(dates) != len(values) {
		return 0, fmt.Errorf("%w: %d dated values", ErrInsufficientHistory, len(values))
	}

	end := dates[len(dates)-1]
	cutoff := end.AddDate(0, -12, 0)
	if dates[0].After(cutoff) {
		return 0, fmt.Errorf("%w: series starts %s, needs 12 months before %s",
			ErrInsufficientHistory, dates[0].Format("2006-01-02"), end.Format("2006-01-02"))
	}

	// Latest observation at or before the cutoff anchors the window.
	anchor := 0
	for i, d := range dates {
		if d.After(cutoff) {
			break
		}
		anchor = i
	}
	if values[anchor] == 0 {
		return 0, fmt.Errorf("%w: zero anchor value", ErrNonPositiveValue)
	}
	return values[len(values)-1]/values[anchor] - 1, nil
}

// SharpeRatio is excess CAGR per unit of annualized volatility.
func (e Engine) SharpeRatio(cagr, annualizedVolatility float64) (float64, error) {
	if annualizedVolatility == 0 {
		return 0, ErrZeroVolatility
	}
	return (cagr - e.RiskFreeRate) / annualizedVolatility, nil
}

// CorrelationMatrix computes pairwise Pearson correlations across all asset
// return series with the benchmark appended as a virtual asset. The matrix
// is symmetric by construction with an exact unit diagonal; NaN from a
// zero-variance series collapses to 0 so results stay JSON-encodable.
func (e Engine) CorrelationMatrix(assets []domain.AssetData, benchmark domain.AssetData) domain.CorrelationData {
	all := make([]domain.AssetData, 0, len(assets)+1)
	all = append(all, assets...)
	all = append(all, benchmark)

	n := len(all)
	data := domain.CorrelationData{
		Tickers:   make([]string, n),
		Matrix:    make([][]float64, n),
		Threshold: e.CorrelationThreshold,
	}
	for i := range all {
		data.Tickers[i] = all[i].Ticker
		data.Matrix[i] = make([]float64, n)
		data.Matrix[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := stat.Correlation(all[i].Returns, all[j].Returns, nil)
			if math.IsNaN(c) {
				c = 0
			}
			data.Matrix[i][j] = c
			data.Matrix[j][i] = c

			if math.Abs(c) > e.CorrelationThreshold {
				data.HighPairs = append(data.HighPairs, domain.CorrelationPair{
					TickerA:     all[i].Ticker,
					TickerB:     all[j].Ticker,
					Correlation: c,
				})
			}
		}
	}

	return data
}
