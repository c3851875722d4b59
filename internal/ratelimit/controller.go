// Package ratelimit implements the adaptive politeness controller for
// upstream probes: a rolling 429 ratio drives an inter-request delay tier,
// and individual probes retry with jittered exponential backoff.
package ratelimit

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
)

// Delay tiers applied between requests depending on the rolling 429 ratio.
const (
	delayCritical = 5 * time.Second
	delayHigh     = 2 * time.Second
	delayModerate = 1 * time.Second
	delayDecay    = 500 * time.Millisecond

	thresholdCritical = 0.5
	thresholdHigh     = 0.3
	thresholdModerate = 0.1
)

// ProbeFunc performs one physical request and returns its HTTP status, or
// lawdoc.StatusNetworkError on transport failure.
type ProbeFunc func(ctx context.Context, url string) int

// Config tunes retry and windowing behavior. Zero values fall back to the
// defaults used against the upstream in production.
type Config struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterBound time.Duration
	StatsWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.JitterBound <= 0 {
		c.JitterBound = time.Second
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = 5 * time.Minute
	}
	return c
}

// Stats is a snapshot of the controller counters.
type Stats struct {
	TotalRequests int64
	Count429      int64
	Rate429       float64
	CurrentDelay  time.Duration
}

// Controller is the single process-wide instance shared by all probe
// workers. All counters are atomic; there is no per-worker state.
type Controller struct {
	cfg    Config
	logger *zap.Logger

	totalRequests atomic.Int64
	count429      atomic.Int64
	windowStart   atomic.Int64 // unix nanos
	currentDelay  atomic.Int64 // nanos between requests

	// pause is swapped out in tests to observe applied delays.
	pause func(ctx context.Context, d time.Duration)
}

// New builds a Controller.
func New(cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		cfg:    cfg.withDefaults(),
		logger: logger,
		pause:  timerPause,
	}
	c.windowStart.Store(time.Now().UnixNano())
	return c
}

// ProbeWithRetry runs probe for url, applying the adaptive inter-request
// delay before each physical attempt and retrying 429s with exponential
// backoff. Exhausting retries returns 429: the caller must treat that as
// "unknown, try again later", never as confirmed absence.
func (c *Controller) ProbeWithRetry(ctx context.Context, url string, probe ProbeFunc) int {
	code := lawdoc.StatusNetworkError
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		c.beforeRequest(ctx)
		code = probe(ctx, url)
		if code != 429 {
			return code
		}
		c.on429(url)
		if attempt < c.cfg.MaxRetries {
			delay := c.backoffDelay(attempt)
			c.logger.Info("retry after 429",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			c.pause(ctx, delay)
			if ctx.Err() != nil {
				return code
			}
		}
	}
	c.logger.Warn("retry budget exhausted",
		zap.String("url", url),
		zap.Int("attempts", c.cfg.MaxRetries),
	)
	return 429
}

// Snapshot returns the current counters.
func (c *Controller) Snapshot() Stats {
	total := c.totalRequests.Load()
	count := c.count429.Load()
	var rate float64
	if total > 0 {
		rate = float64(count) / float64(total)
	}
	return Stats{
		TotalRequests: total,
		Count429:      count,
		Rate429:       rate,
		CurrentDelay:  time.Duration(c.currentDelay.Load()),
	}
}

func (c *Controller) beforeRequest(ctx context.Context) {
	c.totalRequests.Add(1)
	if d := time.Duration(c.currentDelay.Load()); d > 0 {
		c.pause(ctx, d)
	}
	c.maybeResetWindow()
}

func (c *Controller) maybeResetWindow() {
	now := time.Now().UnixNano()
	last := c.windowStart.Load()
	if now-last <= c.cfg.StatsWindow.Nanoseconds() {
		return
	}
	if !c.windowStart.CompareAndSwap(last, now) {
		return
	}
	c.totalRequests.Store(0)
	c.count429.Store(0)
	c.logger.Info("rate-limit stats window reset")
}

func (c *Controller) on429(url string) {
	count := c.count429.Add(1)
	total := c.totalRequests.Load()
	var rate float64
	if total > 0 {
		rate = float64(count) / float64(total)
	}
	c.logger.Warn("rate limit hit",
		zap.String("url", url),
		zap.Int64("count_429", count),
		zap.Int64("total", total),
		zap.Float64("rate", rate),
	)
	c.adjustDelay(rate)
}

func (c *Controller) adjustDelay(rate float64) {
	switch {
	case rate >= thresholdCritical:
		c.currentDelay.Store(int64(delayCritical))
	case rate >= thresholdHigh:
		c.currentDelay.Store(int64(delayHigh))
	case rate > thresholdModerate:
		c.currentDelay.Store(int64(delayModerate))
	default:
		for {
			cur := c.currentDelay.Load()
			next := cur - int64(delayDecay)
			if next < 0 {
				next = 0
			}
			if c.currentDelay.CompareAndSwap(cur, next) {
				break
			}
		}
	}
}

// backoffDelay is min(base*2^(attempt-1) + jitter, max) with jitter drawn
// uniformly from [0, JitterBound).
func (c *Controller) backoffDelay(attempt int) time.Duration {
	delay := c.cfg.BaseDelay << (attempt - 1)
	delay += randomJitter(c.cfg.JitterBound)
	if delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}
	return delay
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func timerPause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
