package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrInvalidRange indicates a rate query whose start is after its end.
var ErrInvalidRange = errors.New("invalid rate range")

// rateFetcher is the client-side surface the service needs.
type rateFetcher interface {
	FetchCCL(ctx context.Context) (Rate, error)
}

// Service keeps the stored CCL rate fresh and serves it to valuation.
type Service struct {
	client   rateFetcher
	repo     RateRepository
	maxStale time.Duration
}

// NewService creates a new FX service. maxStale bounds how old a stored rate
// may be before CurrentRate refetches.
func NewService(client rateFetcher, repo RateRepository, maxStale time.Duration) *Service {
	return &Service{client: client, repo: repo, maxStale: maxStale}
}

// Refresh fetches the current CCL rate and stores it.
func (s *Service) Refresh(ctx context.Context) (Rate, error) {
	rate, err := s.client.FetchCCL(ctx)
	if err != nil {
		return Rate{}, fmt.Errorf("refreshing CCL rate: %w", err)
	}
	if err := s.repo.SaveRate(ctx, rate); err != nil {
		return Rate{}, err
	}
	slog.Info("CCL rate refreshed", "rate", rate.Rate.String(), "recordedAt", rate.RecordedAt)
	return rate, nil
}

// History returns the stored rates observed between from and to, oldest first.
func (s *Service) History(ctx context.Context, from, to time.Time) ([]Rate, error) {
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s is after %s",
			ErrInvalidRange, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return s.repo.RatesBetween(ctx, from, to)
}

// CurrentRate returns the stored rate when fresh enough, refreshing otherwise.
// When the API is down a stale stored rate is still returned as a fallback.
func (s *Service) CurrentRate(ctx context.Context) (Rate, error) {
	stored, err := s.repo.LatestRate(ctx)
	if err == nil && time.Since(stored.RecordedAt) <= s.maxStale {
		return stored, nil
	}
	if err != nil && !errors.Is(err, ErrNoRate) {
		return Rate{}, err
	}

	fresh, refreshErr := s.Refresh(ctx)
	if refreshErr == nil {
		return fresh, nil
	}
	if err == nil {
		slog.Warn("CCL refresh failed, serving stale rate", "error", refreshErr, "recordedAt", stored.RecordedAt)
		return stored, nil
	}
	return Rate{}, refreshErr
}
