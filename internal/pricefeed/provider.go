// Package pricefeed pulls daily NAV prices from an external chart provider and
// writes them into the price store. Fetches across symbols run concurrently;
// one symbol failing does not stop the others.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client fetches daily price charts from the provider's chart endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a chart client against the default provider endpoint.
func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL creates a chart client against a custom endpoint.
// Used by tests to point at a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Quote is one day of provider data for a symbol.
type Quote struct {
	Date  time.Time
	Close decimal.Decimal
}

// chartResponse mirrors the provider's chart payload. Only the fields the sync
// needs are mapped.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *string `json:"error"`
	} `json:"chart"`
}

// RecentQuotes fetches the last five trading days of closes for a symbol.
func (c *Client) RecentQuotes(ctx context.Context, symbol string) ([]Quote, error) {
	url := fmt.Sprintf("%s/%s?interval=1d&range=5d", c.baseURL, symbol)
	return c.fetch(ctx, symbol, url)
}

// QuotesByDateRange fetches daily closes for a symbol between two dates, both
// inclusive. Used when backfilling price history for a new plan.
func (c *Client) QuotesByDateRange(ctx context.Context, symbol string, start, end time.Time) ([]Quote, error) {
	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d", c.baseURL, symbol, start.Unix(), end.Unix())
	return c.fetch(ctx, symbol, url)
}

func (c *Client) fetch(ctx context.Context, symbol, url string) ([]Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chartResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("provider error for %s: %s", symbol, *parsed.Chart.Error)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	result := parsed.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("no price data returned for symbol %s", symbol)
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) != len(result.Timestamp) {
		return nil, fmt.Errorf("mismatched data lengths for symbol %s", symbol)
	}

	quotes := make([]Quote, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		close := result.Indicators.Quote[0].Close[i]
		if close == nil {
			// Holidays and halted days come back as nulls.
			continue
		}
		quotes = append(quotes, Quote{
			Date:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*close),
		})
	}

	return quotes, nil
}
