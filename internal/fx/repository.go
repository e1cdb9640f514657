package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRate indicates no CCL rate has been stored yet.
var ErrNoRate = errors.New("no CCL rate stored")

// RateRepository defines persistent storage for observed CCL rates.
type RateRepository interface {
	SaveRate(ctx context.Context, rate Rate) error
	LatestRate(ctx context.Context) (Rate, error)
	RatesBetween(ctx context.Context, from, to time.Time) ([]Rate, error)
}

// PgRateRepository implements RateRepository with PostgreSQL.
type PgRateRepository struct {
	pool *pgxpool.Pool
}

// NewPgRateRepository creates a new PostgreSQL rate repository.
func NewPgRateRepository(pool *pgxpool.Pool) *PgRateRepository {
	return &PgRateRepository{pool: pool}
}

func (r *PgRateRepository) SaveRate(ctx context.Context, rate Rate) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ccl_rates (rate, recorded_at)
		 VALUES ($1, $2)
		 ON CONFLICT (recorded_at) DO UPDATE SET rate = $1`,
		rate.Rate, rate.RecordedAt)
	if err != nil {
		return fmt.Errorf("saving CCL rate: %w", err)
	}
	return nil
}

func (r *PgRateRepository) LatestRate(ctx context.Context) (Rate, error) {
	var rate Rate
	err := r.pool.QueryRow(ctx,
		`SELECT rate, recorded_at FROM ccl_rates ORDER BY recorded_at DESC LIMIT 1`).
		Scan(&rate.Rate, &rate.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrNoRate
	}
	if err != nil {
		return Rate{}, fmt.Errorf("getting latest CCL rate: %w", err)
	}
	return rate, nil
}

func (r *PgRateRepository) RatesBetween(ctx context.Context, from, to time.Time) ([]Rate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rate, recorded_at FROM ccl_rates
		 WHERE recorded_at >= $1 AND recorded_at <= $2
		 ORDER BY recorded_at`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("getting CCL rates: %w", err)
	}
	defer rows.Close()

	var rates []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.Rate, &rate.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning CCL rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}
