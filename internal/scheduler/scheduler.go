// Package scheduler runs the periodic discovery jobs on plain tickers.
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one named periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler drives registered jobs until stopped. Each job runs on its
// own goroutine with a jittered start so the jobs do not all hit the
// upstream at the same instant.
type Scheduler struct {
	logger *zap.Logger
	jobs   []Job

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool

	// jitter is swapped out in tests.
	jitter func(max time.Duration) time.Duration
}

// New builds an empty Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger: logger,
		jitter: randomJitter,
	}
}

// Add registers a job. Jobs with a non-positive interval are ignored.
func (s *Scheduler) Add(name string, interval time.Duration, run func(ctx context.Context)) {
	if interval <= 0 || run == nil {
		return
	}
	s.jobs = append(s.jobs, Job{Name: name, Interval: interval, Run: run})
}

// Start launches one goroutine per registered job. Calling Start twice
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stop = make(chan struct{})

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Stop halts all job goroutines and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	// Jittered start within a tenth of the interval.
	delay := s.jitter(job.Interval / 10)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	case <-s.stop:
		return
	}

	s.logger.Info("job starting",
		zap.String("job", job.Name),
		zap.Duration("interval", job.Interval),
	)
	job.Run(ctx)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			job.Run(ctx)
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max))) // #nosec G404 -- scheduling jitter, not crypto
}
