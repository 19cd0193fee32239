// Package httpds fetches remote pipeline inputs over HTTP. GETs are retried
// with exponential backoff on transport errors, 429 and 5xx; a Retry-After
// header in seconds replaces the computed backoff. Waits stop on context
// cancellation.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Config configures a Client. Zero values get defaults: Timeout 30s,
// InitialBackoff 200ms, MaxBackoff 5s. MaxRetries 0 disables retries.
type Config struct {
	// Timeout bounds the wait for response headers on each attempt. The body
	// is streamed by the caller and is not bounded.
	Timeout time.Duration

	// MaxRetries is the number of attempts after the first one.
	MaxRetries int

	// InitialBackoff is the wait before the first retry; later waits double
	// up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	InsecureSkipVerify bool

	// Transport replaces the default transport. Tests use it to avoid the
	// network.
	Transport http.RoundTripper

	// Logger receives one warning per retried attempt. Nil uses slog.Default.
	Logger *slog.Logger
}

// Client is an http.Client with retry.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	log            *slog.Logger

	// wait blocks for d or until ctx is done. Tests replace it.
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: cfg.Timeout,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		httpClient:     &http.Client{Transport: transport},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		log:            log,
		wait:           waitContext,
	}
}

// Get fetches url, retrying transient failures. The caller closes the body
// of the returned response, whose status is either 2xx-4xx (except 429) or
// the final retryable status when retries ran out.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		var retryAfter time.Duration
		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case !isRetryableStatus(resp.StatusCode):
			return resp, nil
		default:
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			if attempt >= c.maxRetries {
				return resp, nil
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("httpds: status %d from %s", resp.StatusCode, url)
		}

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("httpds: giving up after %d attempts: %w", attempt+1, lastErr)
		}

		d := backoffDuration(c.initialBackoff, attempt, c.maxBackoff)
		if retryAfter > 0 {
			d = min(retryAfter, c.maxBackoff)
		}
		c.log.Warn("httpds: retrying", "url", url, "attempt", attempt+1, "backoff", d, "err", lastErr)
		if err := c.wait(ctx, d); err != nil {
			return nil, err
		}
	}
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoffDuration returns initial*2^attempt clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt > 30 {
		return max
	}
	d := initial << attempt
	if d <= 0 || d > max {
		return max
	}
	return d
}

// parseRetryAfter reads the delta-seconds form of Retry-After. HTTP dates
// and bad values yield zero.
func parseRetryAfter(v string) time.Duration {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
