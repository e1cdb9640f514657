// Package fx fetches and stores the CCL exchange rate used to value
// positions in both currencies.
package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNonPositiveRate indicates the API returned a rate that cannot be used
// as a divisor.
var ErrNonPositiveRate = errors.New("non-positive CCL rate")

// Rate is one observed CCL rate.
type Rate struct {
	Rate       decimal.Decimal `json:"rate"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// Client fetches the CCL rate from the FX API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewClient creates a new FX API client.
func NewClient(baseURL string, delay time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// cclResponse is the FX API payload for the CCL quote. Buy and sell sides
// come as strings to survive decimal parsing.
type cclResponse struct {
	Buy       string    `json:"compra"`
	Sell      string    `json:"venta"`
	UpdatedAt time.Time `json:"fechaActualizacion"`
}

// FetchCCL returns the current CCL rate, using the midpoint of the buy and
// sell sides.
func (c *Client) FetchCCL(ctx context.Context) (Rate, error) {
	body, err := c.fetchWithRetry(ctx, c.baseURL+"/v1/dolares/contadoconliqui")
	if err != nil {
		return Rate{}, err
	}

	var resp cclResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Rate{}, fmt.Errorf("parsing FX response: %w", err)
	}

	buy, err := decimal.NewFromString(resp.Buy)
	if err != nil {
		return Rate{}, fmt.Errorf("parsing buy side %q: %w", resp.Buy, err)
	}
	sell, err := decimal.NewFromString(resp.Sell)
	if err != nil {
		return Rate{}, fmt.Errorf("parsing sell side %q: %w", resp.Sell, err)
	}

	mid := buy.Add(sell).Div(decimal.NewFromInt(2))
	if !mid.IsPositive() {
		return Rate{}, fmt.Errorf("%w: %s", ErrNonPositiveRate, mid)
	}

	recordedAt := resp.UpdatedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	return Rate{Rate: mid, RecordedAt: recordedAt}, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating FX request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("FX request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading FX response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("FX API rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("FX API HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
