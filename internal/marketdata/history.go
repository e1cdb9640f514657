package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/mervalstat/cedearstat/internal/domain"
)

// historyDateLayout is the wire format for history dates.
const historyDateLayout = "2006-01-02"

// historyResponse wraps the records returned by the /history endpoint.
type historyResponse struct {
	Ticker  string          `json:"ticker"`
	History []historyRecord `json:"history"`
}

// historyRecord is one daily USD close as the API serializes it.
type historyRecord struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// DailyHistory returns the daily USD closes for a ticker, oldest first.
// Records with unparsable dates or non-positive closes are dropped.
func (c *Client) DailyHistory(ctx context.Context, ticker string) ([]domain.PricePoint, error) {
	params := url.Values{}
	params.Set("ticker", ticker)

	var resp historyResponse
	if err := c.getJSON(ctx, "/api/v1/history?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", ticker, err)
	}

	points := make([]domain.PricePoint, 0, len(resp.History))
	for _, rec := range resp.History {
		date, err := time.ParseInLocation(historyDateLayout, rec.Date, time.UTC)
		if err != nil || rec.Close <= 0 {
			continue
		}
		points = append(points, domain.PricePoint{Date: date, Close: rec.Close})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
