// Package catalog is a client for a STAC item search endpoint.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultSearchURL is the Earth Search Sentinel-2 L2A COG items endpoint.
const DefaultSearchURL = "https://earth-search.aws.element84.com/v0/collections/sentinel-s2-l2a-cogs/items"

// ErrUpstream is returned when the catalog answers with a non-success status.
var ErrUpstream = errors.New("catalog returned an error")

// Client handles communication with the catalog search endpoint
type Client struct {
	searchURL  string
	httpClient *http.Client
	retries    int
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a new catalog client
func NewClient(searchURL string, timeout time.Duration) *Client {
	return &Client{
		searchURL: searchURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: "stac-grid-explorer/1.0",
		logger:    slog.Default(),
	}
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithRetries sets how many times a request is repeated after a transport
// failure or a 5xx response.
func (c *Client) WithRetries(n int) *Client {
	c.retries = max(n, 0)
	return c
}

// WithUserAgent overrides the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// Search performs an item search and returns one page of results
func (c *Client) Search(ctx context.Context, q Query) (*ResultSet, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	searchURL, err := c.buildSearchURL(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build search URL: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.WarnContext(ctx, "retrying catalog search",
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()),
			)
		}

		result, retryable, err := c.do(ctx, searchURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// do executes a single request. The bool reports whether a failure is worth
// retrying.
func (c *Client) do(ctx context.Context, searchURL string) (*ResultSet, bool, error) {
	c.logger.DebugContext(ctx, "executing catalog search",
		slog.String("url", searchURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/geo+json, application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "catalog request failed",
			slog.String("error", err.Error()),
			slog.String("url", searchURL),
		)
		return nil, true, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "catalog returned non-success status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(body)),
		)
		retryable := resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var result ResultSet
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode catalog response",
			slog.String("error", err.Error()),
		)
		return nil, false, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	c.logger.DebugContext(ctx, "catalog search completed",
		slog.Int("feature_count", len(result.Features)),
		slog.Int("matched", result.Context.Matched),
	)

	return &result, false, nil
}

// buildSearchURL adds the query parameters to the configured endpoint,
// keeping any parameters already present on it
func (c *Client) buildSearchURL(q Query) (string, error) {
	base, err := url.Parse(c.searchURL)
	if err != nil {
		return "", fmt.Errorf("invalid search URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid search URL: %q", c.searchURL)
	}

	values := base.Query()
	for key, vals := range q.ToURLValues() {
		values[key] = vals
	}
	base.RawQuery = values.Encode()

	return base.String(), nil
}
