package fx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type stubFetcher struct {
	rate  Rate
	err   error
	calls int
}

func (s *stubFetcher) FetchCCL(_ context.Context) (Rate, error) {
	s.calls++
	if s.err != nil {
		return Rate{}, s.err
	}
	return s.rate, nil
}

type memRateRepo struct {
	rates []Rate
}

func (m *memRateRepo) SaveRate(_ context.Context, rate Rate) error {
	m.rates = append(m.rates, rate)
	return nil
}

func (m *memRateRepo) LatestRate(_ context.Context) (Rate, error) {
	if len(m.rates) == 0 {
		return Rate{}, ErrNoRate
	}
	return m.rates[len(m.rates)-1], nil
}

func (m *memRateRepo) RatesBetween(_ context.Context, from, to time.Time) ([]Rate, error) {
	var out []Rate
	for _, r := range m.rates {
		if !r.RecordedAt.Before(from) && !r.RecordedAt.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestCurrentRateServesFreshStored(t *testing.T) {
	fetcher := &stubFetcher{}
	repo := &memRateRepo{rates: []Rate{{Rate: decimal.NewFromInt(1230), RecordedAt: time.Now()}}}
	svc := NewService(fetcher, repo, time.Hour)

	rate, err := svc.CurrentRate(context.Background())
	if err != nil {
		t.Fatalf("CurrentRate() = %v", err)
	}
	if !rate.Rate.Equal(decimal.NewFromInt(1230)) {
		t.Errorf("Rate = %s, want 1230", rate.Rate)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times, want 0", fetcher.calls)
	}
}

func TestCurrentRateRefreshesStale(t *testing.T) {
	fetcher := &stubFetcher{rate: Rate{Rate: decimal.NewFromInt(1250), RecordedAt: time.Now()}}
	repo := &memRateRepo{rates: []Rate{{Rate: decimal.NewFromInt(1230), RecordedAt: time.Now().Add(-2 * time.Hour)}}}
	svc := NewService(fetcher, repo, time.Hour)

	rate, err := svc.CurrentRate(context.Background())
	if err != nil {
		t.Fatalf("CurrentRate() = %v", err)
	}
	if !rate.Rate.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("Rate = %s, want refreshed 1250", rate.Rate)
	}
	if len(repo.rates) != 2 {
		t.Errorf("stored rates = %d, want 2 (refresh persisted)", len(repo.rates))
	}
}

func TestCurrentRateFallsBackToStale(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("api down")}
	stale := Rate{Rate: decimal.NewFromInt(1230), RecordedAt: time.Now().Add(-2 * time.Hour)}
	repo := &memRateRepo{rates: []Rate{stale}}
	svc := NewService(fetcher, repo, time.Hour)

	rate, err := svc.CurrentRate(context.Background())
	if err != nil {
		t.Fatalf("CurrentRate() = %v, want stale fallback", err)
	}
	if !rate.Rate.Equal(stale.Rate) {
		t.Errorf("Rate = %s, want stale 1230", rate.Rate)
	}
}

func TestCurrentRateEmptyAndDown(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("api down")}
	svc := NewService(fetcher, &memRateRepo{}, time.Hour)

	if _, err := svc.CurrentRate(context.Background()); err == nil {
		t.Fatal("expected error with empty store and failing API, got nil")
	}
}

func TestHistoryFiltersByRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC) }
	repo := &memRateRepo{rates: []Rate{
		{Rate: decimal.NewFromInt(1200), RecordedAt: day(1)},
		{Rate: decimal.NewFromInt(1230), RecordedAt: day(2)},
		{Rate: decimal.NewFromInt(1250), RecordedAt: day(5)},
	}}
	svc := NewService(&stubFetcher{}, repo, time.Hour)

	got, err := svc.History(context.Background(), day(2), day(3))
	if err != nil {
		t.Fatalf("History() = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rates = %d, want 1", len(got))
	}
	if !got[0].Rate.Equal(decimal.NewFromInt(1230)) {
		t.Errorf("Rate = %s, want 1230", got[0].Rate)
	}
}

func TestHistoryRejectsInvertedRange(t *testing.T) {
	svc := NewService(&stubFetcher{}, &memRateRepo{}, time.Hour)

	_, err := svc.History(context.Background(), time.Now(), time.Now().Add(-time.Hour))
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("error = %v, want ErrInvalidRange", err)
	}
}
