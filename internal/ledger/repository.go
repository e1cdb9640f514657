package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mervalstat/cedearstat/internal/domain"
)

// ErrPortfolioNotFound indicates an unknown portfolio slug.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// Repository defines append-only persistent storage for transactions.
type Repository interface {
	Append(ctx context.Context, portfolioID int, tx domain.Transaction) (int64, error)
	ListByPortfolio(ctx context.Context, slug string) ([]domain.Transaction, error)
	GetPortfolioID(ctx context.Context, slug string) (int, error)
	EnsurePortfolio(ctx context.Context, slug, name string) (int, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL transaction repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Append stores one transaction and returns its assigned ID. Rows are never
// updated or deleted; the transaction history is the source of truth that
// every summary is rebuilt from.
func (r *PgRepository) Append(ctx context.Context, portfolioID int, tx domain.Transaction) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (portfolio_id, ticker, side, trade_date, quantity, price_ars, rate, ratio)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		portfolioID, tx.Ticker, string(tx.Side), tx.TradeDate,
		tx.Quantity, tx.PriceARS, tx.Rate, tx.Ratio).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("appending transaction for %s: %w", tx.Ticker, err)
	}
	return id, nil
}

// ListByPortfolio returns the full transaction history in insertion order.
func (r *PgRepository) ListByPortfolio(ctx context.Context, slug string) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.ticker, t.side, t.trade_date, t.quantity, t.price_ars, t.rate, t.ratio
		 FROM transactions t
		 JOIN portfolios p ON p.id = t.portfolio_id
		 WHERE p.slug = $1
		 ORDER BY t.id`, slug)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", slug, err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var side string
		var tradeDate time.Time
		if err := rows.Scan(&tx.ID, &tx.Ticker, &side, &tradeDate,
			&tx.Quantity, &tx.PriceARS, &tx.Rate, &tx.Ratio); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		tx.Side = domain.Side(side)
		tx.TradeDate = tradeDate
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// GetPortfolioID resolves a slug to its portfolio ID.
func (r *PgRepository) GetPortfolioID(ctx context.Context, slug string) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM portfolios WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPortfolioNotFound
		}
		return 0, fmt.Errorf("getting portfolio %s: %w", slug, err)
	}
	return id, nil
}

// EnsurePortfolio creates the portfolio row if it does not exist and returns its ID.
func (r *PgRepository) EnsurePortfolio(ctx context.Context, slug, name string) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO portfolios (slug, name)
		 VALUES ($1, $2)
		 ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, slug, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensuring portfolio %s: %w", slug, err)
	}
	return id, nil
}
