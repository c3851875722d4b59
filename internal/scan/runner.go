package scan

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/enumerate"
	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/metrics"
)

// Config controls Runner behavior.
type Config struct {
	// Workers caps the probe fan-out. Zero means one worker per CPU.
	Workers int
	// CommitChunk is the number of absent outcomes buffered before a
	// batch write to the range store. Zero means 50.
	CommitChunk int
	// Topic, when set together with a publisher, receives one event per
	// newly discovered document.
	Topic string
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 || c.Workers > runtime.GOMAXPROCS(0) {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.CommitChunk <= 0 {
		c.CommitChunk = 50
	}
	return c
}

// Report summarizes one scan run.
type Report struct {
	RunID       string
	Strategy    string
	Candidates  int
	Found       int
	NewlyFound  int
	Absent      int
	Unknown     int
	RateLimited int
	Padded      int
	Merged      int
	Duration    time.Duration
}

// Runner executes a discovery run: it resolves an enumerator, fans the
// candidates out over a probe worker pool, and commits outcomes as they
// arrive. Commits are chunked so a long run makes durable progress even
// if it is interrupted.
type Runner struct {
	prober    lawdoc.Prober
	deps      enumerate.Deps
	publisher lawdoc.Publisher
	ids       lawdoc.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// NewRunner constructs a Runner. The publisher may be nil.
func NewRunner(
	prober lawdoc.Prober,
	deps enumerate.Deps,
	publisher lawdoc.Publisher,
	ids lawdoc.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		prober:    prober,
		deps:      deps,
		publisher: publisher,
		ids:       ids,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Run executes one scan described by spec. It returns the report together
// with the first commit error, if any; probing stops early once the
// context is canceled but outcomes already collected are still committed.
func (r *Runner) Run(ctx context.Context, spec enumerate.Spec, opts enumerate.Options) (Report, error) {
	started := r.deps.Clock.Now()

	runID, err := r.ids.NewID()
	if err != nil {
		return Report{}, fmt.Errorf("generate run id: %w", err)
	}

	enum, err := enumerate.Resolve(spec, r.deps, opts)
	if err != nil {
		return Report{}, err
	}
	candidates, err := enum.Candidates(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("enumerate candidates: %w", err)
	}

	strategy := strategyName(spec.Kind)
	r.logger.Info("scan run starting",
		zap.String("run_id", runID),
		zap.String("strategy", strategy),
		zap.String("type", string(opts.DocumentType)),
		zap.Int("candidates", len(candidates)),
	)

	coll := newCollector(r.deps.Found, r.deps.Ranges, r.publisher, r.deps.Clock, r.cfg, runID, r.logger)
	r.probeAll(ctx, candidates, coll)
	report := coll.finish(ctx)

	report.RunID = runID
	report.Strategy = strategy
	report.Candidates = len(candidates)
	report.Merged = r.consolidate(ctx, coll.touchedYears())
	report.Duration = r.deps.Clock.Now().Sub(started)

	result := "ok"
	if coll.err != nil {
		result = "error"
	}
	metrics.ObserveScanRun(strategy, result)

	r.logger.Info("scan run finished",
		zap.String("run_id", runID),
		zap.Int("found", report.Found),
		zap.Int("newly_found", report.NewlyFound),
		zap.Int("absent", report.Absent),
		zap.Int("unknown", report.Unknown),
		zap.Int("rate_limited", report.RateLimited),
		zap.Int("ranges_merged", report.Merged),
		zap.Duration("duration", report.Duration),
	)
	return report, coll.err
}

func (r *Runner) probeAll(ctx context.Context, candidates []lawdoc.Identifier, coll *collector) {
	workers := r.cfg.Workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	if workers == 0 {
		return
	}

	f := newFeed(candidates)
	results := make(chan lawdoc.ProbeResult, workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			coll.collect(ctx, res)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.IncActiveProbeWorkers()
			defer metrics.DecActiveProbeWorkers()
			for {
				if ctx.Err() != nil {
					return
				}
				id, ok := f.Next()
				if !ok {
					return
				}
				results <- r.prober.Probe(ctx, id)
			}
		}()
	}

	wg.Wait()
	close(results)
	<-done
}

// consolidate repairs range fragmentation for every (type, year) the run
// touched. Failures are logged, not fatal: the next run repairs them.
func (r *Runner) consolidate(ctx context.Context, touched map[yearKey]struct{}) int {
	merged := 0
	for key := range touched {
		n, err := r.deps.Ranges.Consolidate(ctx, key.docType, key.year)
		if err != nil {
			r.logger.Warn("range consolidation failed",
				zap.String("type", string(key.docType)),
				zap.Int("year", key.year),
				zap.Error(err),
			)
			continue
		}
		merged += n
	}
	return merged
}

func strategyName(kind enumerate.Kind) string {
	switch kind {
	case enumerate.KindFullRescan:
		return "full-rescan"
	case enumerate.KindCursorResumable:
		return "cursor-resumable"
	case enumerate.KindSingleTarget:
		return "single-target"
	default:
		return "unknown"
	}
}
