package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mervalstat/cedearstat/internal/domain"
	"github.com/samber/lo"
)

// ErrQuoteNotFound indicates the API returned no quote for a requested ticker.
var ErrQuoteNotFound = errors.New("quote not found")

// quotesResponse wraps the records returned by the /quotes endpoint.
type quotesResponse struct {
	Quotes []quoteRecord `json:"quotes"`
}

// quoteRecord is one CEDEAR quote as the API serializes it. Prices come as
// strings to avoid float drift on the wire.
type quoteRecord struct {
	Ticker    string    `json:"ticker"`
	PriceARS  string    `json:"priceArs"`
	CCLRate   string    `json:"cclRate"`
	Timestamp time.Time `json:"timestamp"`
}

// FetchQuotes returns the latest quote for each requested ticker. A ticker
// absent from the response yields ErrQuoteNotFound rather than a partial map.
func (c *Client) FetchQuotes(ctx context.Context, tickers []string) (map[string]domain.Quote, error) {
	if len(tickers) == 0 {
		return map[string]domain.Quote{}, nil
	}

	params := url.Values{}
	params.Set("tickers", strings.Join(tickers, ","))

	var resp quotesResponse
	if err := c.getJSON(ctx, "/api/v1/quotes?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching quotes: %w", err)
	}

	quotes := lo.SliceToMap(resp.Quotes, func(r quoteRecord) (string, domain.Quote) {
		return r.Ticker, domain.Quote{
			Ticker:    r.Ticker,
			PriceARS:  domain.SafeParse(r.PriceARS),
			Rate:      domain.SafeParse(r.CCLRate),
			Timestamp: r.Timestamp,
		}
	})

	for _, ticker := range tickers {
		if _, ok := quotes[ticker]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrQuoteNotFound, ticker)
		}
	}
	return quotes, nil
}
