// Package snapshot persists generated portfolio summaries as dated JSONB
// documents, so past valuations stay reproducible after quotes move on.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested snapshot was not found.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot represents a stored portfolio summary.
type Snapshot struct {
	ID           int             `json:"id"`
	PortfolioID  int             `json:"portfolioId"`
	SnapshotDate time.Time       `json:"snapshotDate"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Repository defines persistent storage for snapshots.
type Repository interface {
	Save(ctx context.Context, portfolioID int, date time.Time, data json.RawMessage) error
	GetLatest(ctx context.Context, slug string) (*Snapshot, error)
	GetByDate(ctx context.Context, slug string, date time.Time) (*Snapshot, error)
	List(ctx context.Context, slug string, limit int) ([]Snapshot, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, portfolioID int, date time.Time, data json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO portfolio_snapshots (portfolio_id, snapshot_date, data)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (portfolio_id, snapshot_date)
		 DO UPDATE SET data = $3::jsonb`,
		portfolioID, date, data)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *PgRepository) GetLatest(ctx context.Context, slug string) (*Snapshot, error) {
	var s Snapshot
	err := r.pool.QueryRow(ctx,
		`SELECT ps.id, ps.portfolio_id, ps.snapshot_date, ps.data, ps.created_at
		 FROM portfolio_snapshots ps
		 JOIN portfolios p ON p.id = ps.portfolio_id
		 WHERE p.slug = $1
		 ORDER BY ps.snapshot_date DESC
		 LIMIT 1`, slug).Scan(&s.ID, &s.PortfolioID, &s.SnapshotDate, &s.Data, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) GetByDate(ctx context.Context, slug string, date time.Time) (*Snapshot, error) {
	var s Snapshot
	err := r.pool.QueryRow(ctx,
		`SELECT ps.id, ps.portfolio_id, ps.snapshot_date, ps.data, ps.created_at
		 FROM portfolio_snapshots ps
		 JOIN portfolios p ON p.id = ps.portfolio_id
		 WHERE p.slug = $1 AND ps.snapshot_date = $2`, slug, date).
		Scan(&s.ID, &s.PortfolioID, &s.SnapshotDate, &s.Data, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot by date: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) List(ctx context.Context, slug string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ps.id, ps.portfolio_id, ps.snapshot_date, ps.data, ps.created_at
		 FROM portfolio_snapshots ps
		 JOIN portfolios p ON p.id = ps.portfolio_id
		 WHERE p.slug = $1
		 ORDER BY ps.snapshot_date DESC
		 LIMIT $2`, slug, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.PortfolioID, &s.SnapshotDate, &s.Data, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}
