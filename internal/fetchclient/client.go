// Package fetchclient implements the HTTP retriever used for existence
// probes and document downloads. A token bucket caps the steady request
// rate independently of the adaptive 429 controller layered above it.
package fetchclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/metrics"
)

// Config holds retrieval client configuration.
type Config struct {
	// TimeoutSeconds bounds each request. Zero means 15.
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// RPS caps the steady request rate. Zero or negative means unlimited.
	RPS float64 `mapstructure:"rps" yaml:"rps"`
	// Burst is the token bucket size. Zero means 1.
	Burst     int    `mapstructure:"burst" yaml:"burst"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

const defaultUserAgent = "lawharvest/1.0"

// Client issues HEAD probes and GET downloads against the upstream.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *zap.Logger
}

// New creates a retrieval client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.TimeoutSeconds <= 0 {
		timeout = 15 * time.Second
	}
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(r, burst),
		userAgent:  ua,
		logger:     logger,
	}
}

var _ lawdoc.Retriever = (*Client)(nil)

// Probe issues a HEAD request and returns the status code. The body is
// never transferred; existence checks stay cheap on both ends.
func (c *Client) Probe(ctx context.Context, url string) (int, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}
	// HEAD responses carry no payload, but the connection still needs
	// the body drained and closed for reuse.
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		c.logger.Debug("close probe body", zap.String("url", url), zap.Error(err))
	}
	return resp.StatusCode, nil
}

// Fetch issues a GET request and returns the payload of a 200 response.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close fetch body", zap.String("url", url), zap.Error(closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", url, err)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return resp, nil
}
