package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/mervalstat/cedearstat/internal/analytics"
	"github.com/mervalstat/cedearstat/internal/api"
	"github.com/mervalstat/cedearstat/internal/config"
	"github.com/mervalstat/cedearstat/internal/database"
	"github.com/mervalstat/cedearstat/internal/export"
	"github.com/mervalstat/cedearstat/internal/fx"
	"github.com/mervalstat/cedearstat/internal/ledger"
	"github.com/mervalstat/cedearstat/internal/marketdata"
	"github.com/mervalstat/cedearstat/internal/snapshot"
	"github.com/mervalstat/cedearstat/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:           "cedearstat",
		Usage:          "CEDEAR portfolio ledger, valuation and analytics",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API with background workers",
				Action: runServe,
			},
			{
				Name:  "snapshot",
				Usage: "generate and store one portfolio snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "date",
						Usage: "snapshot date (YYYY-MM-DD), defaults to today",
					},
				},
				Action: runSnapshot,
			},
			{
				Name:   "export",
				Usage:  "compute the current summary and push it to the configured export target",
				Action: runExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// deps holds everything a command needs after the database and the
// external clients are wired up.
type deps struct {
	cfg       config.Config
	pool      *pgxpool.Pool
	market    *marketdata.Client
	rates     *fx.Service
	ledger    *ledger.Service
	snapshots *snapshot.Service
}

func setup(ctx context.Context) (*deps, error) {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrationsFS, "migrations"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	market := marketdata.NewClient(cfg.MarketDataURL, cfg.MarketDataRetryMax, cfg.MarketDataRetryDelay)
	fxClient := fx.NewClient(cfg.FxURL, cfg.FxRetryDelay, cfg.FxRetryMax)
	rateSvc := fx.NewService(fxClient, fx.NewPgRateRepository(pool), cfg.RateStaleThreshold)

	ledgerRepo := ledger.NewPgRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo)

	snapshotSvc := snapshot.NewService(ledgerRepo, market, rateSvc, snapshot.NewPgRepository(pool))

	if _, err := ledgerRepo.EnsurePortfolio(ctx, cfg.PortfolioSlug, cfg.PortfolioName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring portfolio: %w", err)
	}

	return &deps{
		cfg:       cfg,
		pool:      pool,
		market:    market,
		rates:     rateSvc,
		ledger:    ledgerSvc,
		snapshots: snapshotSvc,
	}, nil
}

// exportHook builds the report export service from configuration, preferring
// Google Sheets over a local workbook. Returns nil when neither is configured.
func exportHook(ctx context.Context, cfg config.Config) (*export.Service, error) {
	switch {
	case cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "":
		writer, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("creating sheets writer: %w", err)
		}
		return export.NewService(writer), nil
	case cfg.XLSXPath != "":
		return export.NewService(export.NewXLSXWriter(cfg.XLSXPath)), nil
	}
	return nil, nil
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Close()

	hook, err := exportHook(ctx, d.cfg)
	if err != nil {
		return err
	}

	rateWorker := worker.NewRateWorker(d.rates, d.cfg.RateWorkerInterval)
	go rateWorker.Run(ctx)

	// worker.AfterSnapshotHook is an interface; a typed nil would not
	// compare equal to nil inside the worker.
	var afterSnapshot worker.AfterSnapshotHook
	if hook != nil {
		afterSnapshot = hook
	}
	reportWorker := worker.NewReportWorker(d.snapshots, d.cfg.PortfolioSlug, d.cfg.ReportWorkerInterval, afterSnapshot)
	go reportWorker.Run(ctx)

	analysisSvc := analytics.NewService(d.market, d.cfg.RiskFreeRate)

	if d.cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, write endpoints are unprotected")
	}

	srv := api.NewServer(d.cfg.HTTPPort, d.snapshots, d.ledger, d.rates, analysisSvc, d.cfg.AdminAPIKey)

	go func() {
		log.Printf("HTTP server listening on :%s", d.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runSnapshot(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Close()

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.String("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("parsing --date: %w", err)
		}
	}

	summary, err := d.snapshots.Generate(ctx, d.cfg.PortfolioSlug, date)
	if err != nil {
		return fmt.Errorf("generating snapshot: %w", err)
	}

	log.Printf("Snapshot stored for %s: total %s ARS / %s USD",
		date.Format("2006-01-02"), summary.TotalValueARS, summary.TotalValueUSD)
	return nil
}

func runExport(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Close()

	hook, err := exportHook(ctx, d.cfg)
	if err != nil {
		return err
	}
	if hook == nil {
		return errors.New("no export target configured: set SHEETS_SPREADSHEET_ID and SHEETS_CREDENTIALS_JSON, or XLSX_PATH")
	}

	summary, err := d.snapshots.Summarize(ctx, d.cfg.PortfolioSlug, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("computing summary: %w", err)
	}
	if err := hook.Export(ctx, summary); err != nil {
		return fmt.Errorf("exporting report: %w", err)
	}

	log.Println("Export complete")
	return nil
}
