// Package httpclient provides the HTTP client used to fetch the upstream report pages.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultTimeout is the per-request timeout used when none is given
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the number of attempts made for transient failures
	DefaultMaxAttempts uint = 5

	// DefaultInitialBackoff is the wait before the first retry. Later waits double.
	DefaultInitialBackoff = time.Second

	// MaxResponseSize bounds the body read from a single response
	MaxResponseSize = 20 * 1024 * 1024

	// UserAgent is sent with every request
	UserAgent = "healthstats-sync/1.0"

	maxBackoff = 30 * time.Second
)

// Client fetches raw page content
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/healthstats-bd/healthstats-sync/internal/httpclient Client
type Client interface {
	// Get performs a GET request and returns the response body.
	// 502, 503 and 504 responses are retried with exponential backoff.
	Get(ctx context.Context, url string) ([]byte, error)
}

// Option configures the default client
type Option func(*defaultClient)

// WithMaxAttempts sets the total number of attempts, including the first one
func WithMaxAttempts(attempts uint) Option {
	return func(c *defaultClient) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithInitialBackoff sets the wait before the first retry
func WithInitialBackoff(d time.Duration) Option {
	return func(c *defaultClient) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

// WithHTTPClient replaces the underlying transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *defaultClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

type defaultClient struct {
	httpClient     *http.Client
	maxAttempts    uint
	initialBackoff time.Duration
}

// NewDefaultClient creates a client with the given request timeout.
// A zero timeout uses DefaultTimeout.
func NewDefaultClient(timeout time.Duration, opts ...Option) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &defaultClient{
		httpClient:     &http.Client{Timeout: timeout},
		maxAttempts:    DefaultMaxAttempts,
		initialBackoff: DefaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url, retrying transient gateway failures
func (c *defaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxBackoff

	attempt := 0
	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		data, err := c.get(ctx, url)
		if err == nil {
			return data, nil
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Retryable() {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "Transient HTTP failure, retrying",
				"url", url,
				"attempt", attempt,
				"max_attempts", c.maxAttempts,
				"retry_in", next,
				"error", err)
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return nil, err
	}
	return data, nil
}

func (c *defaultClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, url, http.StatusText(resp.StatusCode))
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d exceeds maximum allowed size of %.2f MB",
			resp.ContentLength, float64(MaxResponseSize)/(1024*1024))
	}

	// Read one byte past the limit to detect oversized bodies without a Content-Length
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds maximum allowed size of %.2f MB",
			float64(MaxResponseSize)/(1024*1024))
	}

	return data, nil
}
