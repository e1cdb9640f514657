package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mervalstat/cedearstat/internal/domain"
)

// IngestResult reports the outcome of one batch submission. Accepted and
// rejected entries are disjoint; a rejected entry never reaches storage.
type IngestResult struct {
	Accepted []domain.Transaction  `json:"accepted"`
	Rejected []RejectedTransaction `json:"rejected"`
}

// Service validates and appends incoming transactions.
type Service struct {
	repo Repository
}

// NewService creates a new ledger Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Ingest validates each transaction independently and appends the valid ones
// to the portfolio's history. Invalid entries are reported back with their
// reason; they do not block the rest of the batch.
func (s *Service) Ingest(ctx context.Context, slug string, txs []domain.Transaction) (IngestResult, error) {
	portfolioID, err := s.repo.GetPortfolioID(ctx, slug)
	if err != nil {
		return IngestResult{}, fmt.Errorf("resolving portfolio: %w", err)
	}

	var result IngestResult
	for _, tx := range txs {
		tx = Normalize(tx)
		if reason := Validate(tx); reason != "" {
			result.Rejected = append(result.Rejected, RejectedTransaction{Transaction: tx, Reason: reason})
			continue
		}

		id, err := s.repo.Append(ctx, portfolioID, tx)
		if err != nil {
			return IngestResult{}, fmt.Errorf("appending transaction: %w", err)
		}
		tx.ID = id
		result.Accepted = append(result.Accepted, tx)
	}

	if len(result.Rejected) > 0 {
		slog.Warn("batch ingested with rejections", "portfolio", slug,
			"accepted", len(result.Accepted), "rejected", len(result.Rejected))
	}
	return result, nil
}
