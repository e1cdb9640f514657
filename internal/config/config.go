// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL            string
	MarketDataURL          string
	FxURL                  string
	MarketDataRetryMax     int
	MarketDataRetryDelay   time.Duration
	FxRetryMax             int
	FxRetryDelay           time.Duration
	RateStaleThreshold     time.Duration
	RateWorkerInterval     time.Duration
	ReportWorkerInterval   time.Duration
	PortfolioSlug          string
	PortfolioName          string
	RiskFreeRate           float64
	HTTPPort               string
	AdminAPIKey            string
	SheetsSpreadsheetID    string
	SheetsCredentialsJSON  string
	XLSXPath               string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DatabaseURL:            envOrDefaultWarn("DATABASE_URL", ""),
		MarketDataURL:          envOrDefault("MARKETDATA_URL", "https://data912.com"),
		FxURL:                  envOrDefault("FX_URL", "https://dolarapi.com"),
		MarketDataRetryMax:     envOrDefaultInt("MARKETDATA_RETRY_MAX", 5),
		MarketDataRetryDelay:   envOrDefaultDuration("MARKETDATA_RETRY_BASE_DELAY", 2*time.Second),
		FxRetryMax:             envOrDefaultInt("FX_RETRY_MAX", 5),
		FxRetryDelay:           envOrDefaultDuration("FX_RETRY_BASE_DELAY", 6*time.Second),
		RateStaleThreshold:     envOrDefaultDuration("RATE_STALE_THRESHOLD", 2*time.Hour),
		RateWorkerInterval:     envOrDefaultDuration("RATE_WORKER_INTERVAL", 1*time.Hour),
		ReportWorkerInterval:   envOrDefaultDuration("REPORT_WORKER_INTERVAL", 24*time.Hour),
		PortfolioSlug:          envOrDefault("PORTFOLIO_SLUG", "main"),
		PortfolioName:          envOrDefault("PORTFOLIO_NAME", "Main portfolio"),
		RiskFreeRate:           envOrDefaultFloat("RISK_FREE_RATE", 0.0),
		HTTPPort:               envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:            envOrDefault("ADMIN_API_KEY", ""),
		SheetsSpreadsheetID:    envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON:  envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
		XLSXPath:               envOrDefault("XLSX_PATH", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
