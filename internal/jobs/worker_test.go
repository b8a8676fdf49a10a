package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorker_EnqueueAsync(t *testing.T) {
	w := NewWorker(2)
	defer w.Shutdown()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		w.EnqueueAsync("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	w.EnqueueAsync("fail", func(ctx context.Context) error {
		return errors.New("boom")
	})
	w.EnqueueAsync("panic", func(ctx context.Context) error {
		panic("unexpected")
	})
	w.Wait()

	assert.Equal(t, int32(5), ran.Load())
	stats := w.GetStats()
	assert.Equal(t, int64(7), stats.FinishedJobs)
	assert.Equal(t, int64(2), stats.FailedJobs)
	assert.Equal(t, 0, stats.ActiveJobs)
	assert.Equal(t, 2, stats.MaxConcurrent)
}

func TestWorker_ScheduleEveryImmediate(t *testing.T) {
	w := NewWorker(1)

	var runs atomic.Int32
	w.ScheduleEvery("tick", 10*time.Millisecond, true, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	w.Shutdown()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after shutdown")
}

func TestWorker_ShutdownIsIdempotent(t *testing.T) {
	w := NewWorker(1)
	w.Shutdown()
	w.Shutdown()
}

func TestWorker_ShutdownDrainsQueuedJobs(t *testing.T) {
	w := NewWorker(1)

	var written, canceled atomic.Int32
	for i := 0; i < 5; i++ {
		w.EnqueueAsync("write", func(ctx context.Context) error {
			select {
			case <-time.After(20 * time.Millisecond):
			case <-ctx.Done():
				canceled.Add(1)
				return ctx.Err()
			}
			written.Add(1)
			return nil
		})
	}
	w.Shutdown()

	assert.Equal(t, int32(5), written.Load())
	assert.Equal(t, int32(0), canceled.Load())
	stats := w.GetStats()
	assert.Equal(t, int64(5), stats.FinishedJobs)
	assert.Equal(t, int64(0), stats.FailedJobs)
}

func TestWorker_RejectsJobsAfterShutdown(t *testing.T) {
	w := NewWorker(1)
	w.Shutdown()

	var ran atomic.Int32
	w.EnqueueAsync("late", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	w.Wait()

	assert.Equal(t, int32(0), ran.Load())
	assert.Equal(t, int64(1), w.GetStats().RejectedJobs)
}

func TestWorker_ShutdownWaitsForAsyncBeforeStoppingTickers(t *testing.T) {
	w := NewWorker(1)

	var ticks atomic.Int32
	w.ScheduleEvery("tick", 5*time.Millisecond, false, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	})

	var sawCanceled atomic.Bool
	w.EnqueueAsync("slow", func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		sawCanceled.Store(ctx.Err() != nil)
		return nil
	})
	w.Shutdown()

	assert.False(t, sawCanceled.Load())
	assert.Positive(t, ticks.Load())
}
