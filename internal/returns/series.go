// Package returns converts raw price histories on possibly different trading
// calendars into aligned periodic return series and cumulative performance
// indexes.
package returns

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/mervalstat/cedearstat/internal/domain"
)

// ErrInsufficientHistory indicates fewer than two aligned data points.
var ErrInsufficientHistory = errors.New("insufficient aligned price history")

// ErrMissingSeries indicates a requested ticker with no price history.
var ErrMissingSeries = errors.New("no price series for ticker")

// BaseIndex is the common starting value for cumulative performance curves.
const BaseIndex = 100.0

// BuildAssetData aligns every series to the intersection of available dates
// (an inner join on date) and computes simple periodic returns per ticker.
// The benchmark participates in the alignment like any other series.
func BuildAssetData(series map[string][]domain.PricePoint, tickers []string) ([]domain.AssetData, error) {
	for _, ticker := range tickers {
		if len(series[ticker]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingSeries, ticker)
		}
	}

	dates := alignedDates(series, tickers)
	if len(dates) < 2 {
		return nil, fmt.Errorf("%w: %d aligned points across %d series",
			ErrInsufficientHistory, len(dates), len(tickers))
	}

	assets := make([]domain.AssetData, 0, len(tickers))
	for _, ticker := range tickers {
		byDate := lo.SliceToMap(series[ticker], func(p domain.PricePoint) (time.Time, float64) {
			return dateKey(p.Date), p.Close
		})

		prices := make([]float64, len(dates))
		for i, d := range dates {
			prices[i] = byDate[d]
		}

		assets = append(assets, domain.AssetData{
			Ticker:  ticker,
			Dates:   dates,
			Prices:  prices,
			Returns: simpleReturns(prices),
		})
	}

	return assets, nil
}

// BuildPerformance compounds weighted asset returns and benchmark returns
// into cumulative index values starting at BaseIndex on the first aligned
// date. Assets and benchmark must share the aligned calendar, which
// BuildAssetData guarantees.
func BuildPerformance(assets []domain.AssetData, weights map[string]float64, benchmark domain.AssetData) (domain.PerformanceData, error) {
	if len(benchmark.Returns) < 1 {
		return domain.PerformanceData{}, fmt.Errorf("%w: benchmark %s", ErrInsufficientHistory, benchmark.Ticker)
	}

	perf := domain.PerformanceData{
		Dates:     benchmark.Dates,
		Portfolio: make([]float64, len(benchmark.Dates)),
		Benchmark: make([]float64, len(benchmark.Dates)),
	}
	perf.Portfolio[0] = BaseIndex
	perf.Benchmark[0] = BaseIndex

	for t := 1; t < len(benchmark.Dates); t++ {
		portfolioReturn := 0.0
		for _, asset := range assets {
			portfolioReturn += weights[asset.Ticker] * asset.Returns[t-1]
		}
		perf.Portfolio[t] = perf.Portfolio[t-1] * (1 + portfolioReturn)
		perf.Benchmark[t] = perf.Benchmark[t-1] * (1 + benchmark.Returns[t-1])
	}

	return perf, nil
}

// PortfolioReturns collapses per-asset returns into one weighted return series.
func PortfolioReturns(assets []domain.AssetData, weights map[string]float64) []float64 {
	if len(assets) == 0 {
		return nil
	}
	combined := make([]float64, len(assets[0].Returns))
	for _, asset := range assets {
		w := weights[asset.Ticker]
		for t, r := range asset.Returns {
			combined[t] += w * r
		}
	}
	return combined
}

// simpleReturns computes r_t = p_t/p_{t-1} - 1. A zero previous price yields
// a zero return rather than an infinity; gap-free input makes this rare.
func simpleReturns(prices []float64) []float64 {
	rets := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			rets[i-1] = prices[i]/prices[i-1] - 1
		}
	}
	return rets
}

// alignedDates returns the ascending intersection of the tickers' date sets.
func alignedDates(series map[string][]domain.PricePoint, tickers []string) []time.Time {
	counts := make(map[time.Time]int)
	for _, ticker := range tickers {
		seen := make(map[time.Time]bool)
		for _, p := range series[ticker] {
			key := dateKey(p.Date)
			if !seen[key] {
				seen[key] = true
				counts[key]++
			}
		}
	}

	var dates []time.Time
	for d, n := range counts {
		if n == len(tickers) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// dateKey normalizes a timestamp to its UTC calendar date.
func dateKey(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
