package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sjperalta/pratiche-api/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker runs fire-and-forget jobs and periodic tasks.
//
// Async jobs run on a context that shutdown does not cancel: Shutdown stops
// accepting new jobs, waits for every accepted one to finish and only then
// stops the periodic tasks.
type Worker struct {
	ctx       context.Context // periodic tasks, cancelled on shutdown
	cancel    context.CancelFunc
	asyncCtx  context.Context
	asyncWG   sync.WaitGroup
	periodWG  sync.WaitGroup
	asyncSem  chan struct{}
	maxAsync  int
	mu        sync.Mutex
	closed    bool
	stats     WorkerStats
	statsMu   sync.RWMutex
	closeOnce sync.Once
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int   `json:"active_jobs"`
	FinishedJobs  int64 `json:"finished_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	RejectedJobs  int64 `json:"rejected_jobs"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// NewWorker creates a worker running at most concurrency async jobs at once
func NewWorker(concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ctx:      ctx,
		cancel:   cancel,
		asyncCtx: context.WithoutCancel(ctx),
		asyncSem: make(chan struct{}, concurrency),
		maxAsync: concurrency,
	}
}

// EnqueueAsync runs a job in a new goroutine, bounded by the concurrency
// limit. Jobs enqueued after Shutdown has started are rejected.
func (w *Worker) EnqueueAsync(name string, job Job) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.trackRejected()
		logger.Warn("Rejecting job after shutdown", "job", name)
		return
	}
	w.asyncWG.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.asyncWG.Done()

		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()

		w.run(w.asyncCtx, name, job)
	}()
}

// ScheduleEvery runs a job at fixed intervals. With immediate set the first
// run happens at startup instead of after the first interval.
func (w *Worker) ScheduleEvery(name string, interval time.Duration, immediate bool, job Job) {
	w.periodWG.Add(1)
	go func() {
		defer w.periodWG.Done()
		if immediate {
			w.run(w.ctx, name, job)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run(w.ctx, name, job)
			}
		}
	}()
}

func (w *Worker) run(ctx context.Context, name string, job Job) {
	w.trackJobStart()
	start := time.Now()
	failed := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panic", "job", name, "panic", r)
			failed = true
		}
		w.trackJobEnd(failed)
	}()

	if err := job(ctx); err != nil {
		logger.Error("Job failed", "job", name, "error", err)
		failed = true
		return
	}
	logger.Debug("Job completed", "job", name, "duration", time.Since(start))
}

// Shutdown drains accepted async jobs, then stops the periodic tasks
func (w *Worker) Shutdown() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		w.asyncWG.Wait()
		w.cancel()
		w.periodWG.Wait()
	})
}

// Wait blocks until every enqueued async job has finished
func (w *Worker) Wait() {
	w.asyncWG.Wait()
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.MaxConcurrent = w.maxAsync
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

func (w *Worker) trackJobEnd(failed bool) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.FinishedJobs++
	if failed {
		w.stats.FailedJobs++
	}
}

func (w *Worker) trackRejected() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.RejectedJobs++
}
