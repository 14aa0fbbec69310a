// Package data provides market data provider implementations.
//
// This file contains a Massive-backed Provider implementation that
// retrieves daily aggregate bars via the Massive HTTP API.
//
// Design notes:
//   - Uses raw HTTP calls instead of the official Massive SDK
//   - Handles per-minute rate-limit retries and fallback providers
//   - Logging is intentionally verbose at Debug/Trace levels
package data

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/contactkeval/option-pricer/internal/logger"
)

// massiveQuoteProvider implements the Provider interface using Massive APIs.
type massiveQuoteProvider struct {
	// APIKey used for authenticating requests with Massive.
	APIKey string

	// Client is the HTTP client used to make API requests.
	Client *http.Client

	// BaseURL is the root endpoint for Massive APIs
	// (e.g., https://api.massive.com).
	BaseURL string

	// secondary is an optional fallback provider.
	secondary Provider
}

// NewMassiveQuoteProvider constructs a Massive-backed quote provider.
//
// It initializes an HTTP client with sensible defaults for timeouts,
// connection pooling, HTTP/2 and gzip decompression.
//
// Parameters:
//   - apiKey: Massive API key for authentication
//
// Returns:
//   - *massiveQuoteProvider: initialized provider instance
func NewMassiveQuoteProvider(apiKey string) *massiveQuoteProvider {
	logger.Infof("initializing Massive quote provider")

	return &massiveQuoteProvider{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				DisableCompression:    false, // must be false to enable gzip auto-decompression
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		BaseURL: "https://api.massive.com",
	}
}

// Secondary returns the configured secondary Provider, if any.
func (massiveQuoteProv *massiveQuoteProvider) Secondary() Provider {
	return massiveQuoteProv.secondary
}

// GetBars retrieves daily OHLCV bars for the given symbol and date range.
//
// Parameters:
//   - symbol: ticker symbol
//   - fromDate: start date (inclusive)
//   - toDate: end date (inclusive)
//
// Returns:
//   - []Bar: time-ordered bars
//   - error: if retrieval or decoding fails
func (massiveQuoteProv *massiveQuoteProvider) GetBars(
	symbol string,
	fromDate, toDate time.Time,
) ([]Bar, error) {

	maxLimit := 50000

	logger.Debugf(
		"fetching bars: %s from=%s to=%s",
		symbol,
		fromDate.Format("2006-01-02"),
		toDate.Format("2006-01-02"),
	)

	url := fmt.Sprintf(
		"%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=%d&apiKey=%s",
		massiveQuoteProv.BaseURL,
		symbol,
		fromDate.Format("2006-01-02"),
		toDate.Format("2006-01-02"),
		maxLimit,
		massiveQuoteProv.APIKey,
	)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		logger.Errorf("bars request errored=%v", err)
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("x-api-key", massiveQuoteProv.APIKey)

	resp, err := massiveQuoteProv.processGetRequest(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if massiveQuoteProv.secondary != nil {
			logger.Infof("massive bars failed, delegating to secondary provider")
			return massiveQuoteProv.secondary.GetBars(symbol, fromDate, toDate)
		}
		logger.Errorf("bars request failed")
		return nil, fmt.Errorf("massive api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"massive daily bars status=%d body=%s",
			resp.StatusCode,
			string(bodyBytes),
		)
	}

	// Massive/Polygon style response model
	var body struct {
		Ticker   string `json:"ticker"`
		Adjusted bool   `json:"adjusted"`
		Results  []struct {
			Open      float64 `json:"o"`
			Close     float64 `json:"c"`
			High      float64 `json:"h"`
			Low       float64 `json:"l"`
			VWAP      float64 `json:"vw"` // volume-weighted average price
			Volume    float64 `json:"v"`  // trading volume in the window
			Trades    int64   `json:"n"`  // number of transactions in the window
			Timestamp int64   `json:"t"`  // epoch millis
		} `json:"results"`
		Status string `json:"status"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing massive response: %w", err)
	}

	logger.Tracef("bars received: %d records", len(body.Results))

	out := make([]Bar, 0, len(body.Results))
	for _, r := range body.Results {
		out = append(out, Bar{
			Date:  time.UnixMilli(r.Timestamp).UTC(),
			Open:  r.Open,
			High:  r.High,
			Low:   r.Low,
			Close: r.Close,
			Vol:   r.Volume,
		})
	}

	return out, nil
}

// processGetRequest executes a GET request, sleeping through per-minute
// rate limits (HTTP 429) until the next minute boundary before retrying.
func (massiveQuoteProv *massiveQuoteProvider) processGetRequest(
	req *http.Request,
) (*http.Response, error) {

	for {
		resp, err := massiveQuoteProv.Client.Do(req)
		if err != nil {
			return nil, err
		}

		// Success
		if resp.StatusCode < 400 {
			return resp, nil
		}

		// Handle per-minute rate limit (commonly 429)
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()

			// Sleep until the next minute boundary
			now := time.Now()
			sleepDuration := time.Until(
				now.Truncate(time.Minute).Add(time.Minute),
			)

			logger.Infof("rate limit hit, sleeping for %s", sleepDuration)
			time.Sleep(sleepDuration)
			continue
		}

		return resp, fmt.Errorf(
			"unexpected status code: %d",
			resp.StatusCode,
		)
	}
}
