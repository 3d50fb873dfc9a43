// Package fetch implements the acquisition side of ingestion: crawling
// series IDs from the MangaUpdates search API, downloading per-series detail
// records under a bounded concurrency cap, merging the per-series files into
// a single append-only log, and downloading the Manami offline database
// release.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/halcyonlabs/mediarec/internal/logging"
)

// DefaultBaseURL is the MangaUpdates API root.
const DefaultBaseURL = "https://api.mangaupdates.com/v1"

// retryableStatuses are HTTP statuses retried with exponential backoff.
// Anything else is terminal for the request.
var retryableStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// Config holds acquisition parameters.
type Config struct {
	// BaseURL of the series API. Tests point this at a local server.
	BaseURL string

	// APIToken is sent as a bearer token when set.
	APIToken string

	// Delay is the base politeness delay between requests; it also seeds
	// the exponential backoff.
	Delay time.Duration

	// MaxRetries bounds retries per request on transient failures.
	MaxRetries int

	// MaxInFlight caps concurrent series downloads.
	MaxInFlight int
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Delay <= 0 {
		c.Delay = 500 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 2
	}
}

// Client talks to the series API with retry, backoff and politeness built
// in.
type Client struct {
	http   *http.Client
	config Config
	logger *logging.Logger
}

// NewClient creates an acquisition client.
func NewClient(config Config, logger *logging.Logger) *Client {
	config.ApplyDefaults()
	return &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		config: config,
		logger: logger.Named("fetch"),
	}
}

// requestWithBackoff sends one HTTP request, retrying transient failures
// (rate limiting, 5xx, transport errors) with exponential backoff up to the
// retry ceiling. Returns the response body on success.
func (c *Client) requestWithBackoff(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.Delay * time.Duration(1<<(attempt-1))
			c.logger.Warn(ctx, "request failed, retrying",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var body io.Reader
		if payload != nil {
			encoded, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encoding request payload: %w", err)
			}
			body = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return data, nil
		}

		if _, retryable := retryableStatuses[resp.StatusCode]; !retryable {
			return nil, fmt.Errorf("request %s %s: status %d", method, url, resp.StatusCode)
		}
		lastErr = fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil, fmt.Errorf("request %s %s failed after %d attempts: %w", method, url, c.config.MaxRetries, lastErr)
}
