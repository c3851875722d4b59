package scan

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/metrics"
)

type yearKey struct {
	docType lawdoc.DocumentType
	year    int
}

// collector is the single consumer of probe results. It inserts finds
// immediately, buffers absences and flushes them in chunks, and keeps the
// run counters. Only the probe workers run concurrently; the collector
// itself is single-goroutine, so it needs no locking.
type collector struct {
	found     lawdoc.FoundStore
	ranges    lawdoc.RangeStore
	publisher lawdoc.Publisher
	clock     lawdoc.Clock
	cfg       Config
	runID     string
	logger    *zap.Logger

	absent  []lawdoc.Identifier
	touched map[yearKey]struct{}
	report  Report
	err     error
}

func newCollector(
	found lawdoc.FoundStore,
	ranges lawdoc.RangeStore,
	publisher lawdoc.Publisher,
	clock lawdoc.Clock,
	cfg Config,
	runID string,
	logger *zap.Logger,
) *collector {
	return &collector{
		found:     found,
		ranges:    ranges,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		runID:     runID,
		logger:    logger,
		touched:   map[yearKey]struct{}{},
	}
}

func (c *collector) collect(ctx context.Context, res lawdoc.ProbeResult) {
	metrics.ObserveProbe(string(res.ID.Type), res.Outcome.String())

	switch res.Outcome {
	case lawdoc.OutcomePresent:
		c.report.Found++
		if res.Padded {
			c.report.Padded++
		}
		c.recordFound(ctx, res)
	case lawdoc.OutcomeAbsent:
		c.report.Absent++
		c.absent = append(c.absent, res.ID)
		c.touched[yearKey{docType: res.ID.Type, year: res.ID.Year}] = struct{}{}
		if len(c.absent) >= c.cfg.CommitChunk {
			c.flushAbsent(ctx)
		}
	default:
		c.report.Unknown++
		if res.StatusCode == http.StatusTooManyRequests {
			c.report.RateLimited++
			metrics.ObserveRateLimitHit()
		}
	}
}

func (c *collector) recordFound(ctx context.Context, res lawdoc.ProbeResult) {
	inserted, err := c.found.Insert(ctx, lawdoc.FoundRecord{
		DocumentID:   res.ID.String(),
		Type:         res.ID.Type,
		Year:         res.ID.Year,
		Number:       res.ID.Number,
		URL:          res.URL,
		Stage:        lawdoc.StagePending,
		DiscoveredAt: c.clock.Now(),
	})
	if err != nil {
		c.fail(fmt.Errorf("insert found %s: %w", res.ID, err))
		return
	}
	if !inserted {
		return
	}
	c.report.NewlyFound++
	c.logger.Info("document discovered",
		zap.String("run_id", c.runID),
		zap.String("document_id", res.ID.String()),
		zap.String("url", res.URL),
		zap.Bool("padded", res.Padded),
	)
	c.publishFound(ctx, res)
}

func (c *collector) publishFound(ctx context.Context, res lawdoc.ProbeResult) {
	if c.publisher == nil || c.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"run_id":      c.runID,
		"document_id": res.ID.String(),
		"type":        string(res.ID.Type),
		"year":        res.ID.Year,
		"number":      res.ID.Number,
		"url":         res.URL,
		"timestamp":   c.clock.Now().UTC().Format(time.RFC3339),
	}
	if _, err := c.publisher.Publish(ctx, c.cfg.Topic, payload); err != nil {
		// Discovery events are best effort; the find itself is durable.
		c.logger.Warn("publish discovery event failed",
			zap.String("document_id", res.ID.String()),
			zap.Error(err),
		)
	}
}

func (c *collector) flushAbsent(ctx context.Context) {
	if len(c.absent) == 0 {
		return
	}
	if err := c.ranges.RecordAbsentBatch(ctx, c.absent); err != nil {
		c.fail(fmt.Errorf("record absent batch: %w", err))
	}
	c.absent = c.absent[:0]
}

// finish flushes the remaining absences and returns the counters.
func (c *collector) finish(ctx context.Context) Report {
	c.flushAbsent(ctx)
	return c.report
}

func (c *collector) touchedYears() map[yearKey]struct{} {
	return c.touched
}

// fail keeps the first error; later outcomes are still counted.
func (c *collector) fail(err error) {
	if c.err == nil {
		c.err = err
	}
	c.logger.Error("scan commit failed", zap.String("run_id", c.runID), zap.Error(err))
}
