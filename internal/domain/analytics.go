package domain

import "time"

// AssetData holds one ticker's aligned, gap-free price history together with
// its derived periodic returns. Dates, Prices and Returns share the common
// aligned calendar; Returns has one fewer element than Prices.
type AssetData struct {
	Ticker  string      `json:"ticker"`
	Dates   []time.Time `json:"dates"`
	Prices  []float64   `json:"prices"`
	Returns []float64   `json:"returns"`
}

// PerformanceData holds cumulative index values for the weighted portfolio
// and the benchmark, both rebased to a common starting value so the two
// curves are directly comparable.
type PerformanceData struct {
	Dates     []time.Time `json:"dates"`
	Portfolio []float64   `json:"portfolio"`
	Benchmark []float64   `json:"benchmark"`
}

// CorrelationPair is one off-diagonal matrix entry whose absolute value
// exceeds the materiality threshold.
type CorrelationPair struct {
	TickerA     string  `json:"tickerA"`
	TickerB     string  `json:"tickerB"`
	Correlation float64 `json:"correlation"`
}

// CorrelationData is the symmetric Pearson correlation matrix over all asset
// return series, benchmark included as a virtual asset. Matrix[i][j] is the
// correlation between Tickers[i] and Tickers[j].
type CorrelationData struct {
	Tickers   []string          `json:"tickers"`
	Matrix    [][]float64       `json:"matrix"`
	Threshold float64           `json:"threshold"`
	HighPairs []CorrelationPair `json:"highPairs"`
}

// PortfolioMetrics are the risk/return figures for the weighted portfolio.
type PortfolioMetrics struct {
	Volatility         float64 `json:"volatility"`
	Beta               float64 `json:"beta"`
	CAGR               float64 `json:"cagr"`
	TrailingYearReturn float64 `json:"trailingYearReturn"`
	SharpeRatio        float64 `json:"sharpeRatio"`
}

// BenchmarkMetrics are the comparable figures for the benchmark alone.
type BenchmarkMetrics struct {
	Ticker             string  `json:"ticker"`
	Volatility         float64 `json:"volatility"`
	CAGR               float64 `json:"cagr"`
	TrailingYearReturn float64 `json:"trailingYearReturn"`
}

// OptimizerResult is the terminal aggregate of the statistics pipeline.
// It is fully built before being returned and never mutated after.
type OptimizerResult struct {
	GeneratedAt      time.Time          `json:"generatedAt"`
	Benchmark        string             `json:"benchmark"`
	Weights          map[string]float64 `json:"weights"`
	Assets           []AssetData        `json:"assets"`
	Performance      PerformanceData    `json:"performance"`
	Correlation      CorrelationData    `json:"correlation"`
	Metrics          PortfolioMetrics   `json:"metrics"`
	BenchmarkMetrics BenchmarkMetrics   `json:"benchmarkMetrics"`
}

// PricePoint is one dated close from a raw (unaligned) price history.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}
