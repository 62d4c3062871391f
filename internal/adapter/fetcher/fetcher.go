// Package fetcher performs upstream HTTP GETs with bounded retries.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gridguard/leop-server/internal/adapter/observability"
	"github.com/gridguard/leop-server/internal/domain"
)

const userAgent = "GridGuard/1.0"

// Client fetches URLs with a per-attempt timeout, retrying transport
// errors and 5xx responses. 4xx responses are terminal. Safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	maxRetries int
	timeout    time.Duration
}

// New returns a Client with the given per-attempt timeout and retry budget.
func New(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		// Redirects are followed by default; the overall client timeout
		// stays unset because each attempt carries its own context.
		httpClient: &http.Client{},
		maxRetries: maxRetries,
		timeout:    timeout,
	}
}

// NewWithHTTPClient returns a Client with a custom HTTP client (useful for
// tests).
func NewWithHTTPClient(httpClient *http.Client, timeout time.Duration, maxRetries int) *Client {
	return &Client{httpClient: httpClient, maxRetries: maxRetries, timeout: timeout}
}

// Fetch GETs url, retrying up to maxRetries extra attempts on transport
// errors and 5xx with exponential backoff. Returns the final status and
// body on 2xx, an error otherwise.
func (c *Client) Fetch(ctx context.Context, url string) (domain.FetchResult, error) {
	var result domain.FetchResult
	start := time.Now()

	operation := func() error {
		res, err := c.attempt(ctx, url)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)
	err := backoff.Retry(operation, bo)

	observability.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.FetchAttemptsTotal.WithLabelValues("failure").Inc()
		return domain.FetchResult{}, fmt.Errorf("op=fetcher.Fetch url=%s: %w", url, err)
	}
	observability.FetchAttemptsTotal.WithLabelValues("success").Inc()
	return result, nil
}

func (c *Client) attempt(ctx context.Context, url string) (domain.FetchResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return domain.FetchResult{}, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("fetch attempt failed", slog.String("url", url), slog.Any("error", err))
		return domain.FetchResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.FetchResult{}, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return domain.FetchResult{Status: resp.StatusCode, Body: body}, nil
	case resp.StatusCode >= 500:
		// retryable
		return domain.FetchResult{}, fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrUpstreamStatus)
	default:
		// 3xx past redirect handling and all 4xx are terminal
		return domain.FetchResult{}, backoff.Permanent(
			fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrUpstreamStatus))
	}
}
