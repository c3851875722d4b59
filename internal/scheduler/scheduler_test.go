package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	s := New(nil)
	s.jitter = func(time.Duration) time.Duration { return 0 }
	return s
}

func TestScheduler_RunsJobImmediatelyThenOnTicks(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()
	var runs atomic.Int64
	s.Add("count", 20*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestScheduler_StopHaltsJobs(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()
	var runs atomic.Int64
	s.Add("count", 10*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, runs.Load())
}

func TestScheduler_IgnoresInvalidJobs(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()
	s.Add("no interval", 0, func(context.Context) {})
	s.Add("no func", time.Second, nil)
	require.Empty(t, s.jobs)
}

func TestScheduler_ContextCancelStopsJobs(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()
	var runs atomic.Int64
	s.Add("count", 10*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	time.Sleep(30 * time.Millisecond)
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, runs.Load())
	s.Stop()
}

func TestScheduler_DoubleStartIsNoOp(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()
	var runs atomic.Int64
	s.Add("count", time.Hour, func(context.Context) {
		runs.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()
	require.Equal(t, int64(1), runs.Load())
}
