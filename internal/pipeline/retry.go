package pipeline

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/config"
)

// RetryFunc re-evaluates a mint. It returns true when the pass reached
// a terminal outcome (published or hard-dropped) and false when the
// data is still pending and another attempt is warranted.
type RetryFunc func(ctx context.Context, mint string, attempt int) (done bool)

// RetryWorker schedules delayed re-evaluation of mints whose provider
// data was still pending. At most one task exists per mint; scheduling
// an already-tracked mint is a no-op.
type RetryWorker struct {
	cfg     config.Retry
	process RetryFunc
	log     zerolog.Logger

	mu     sync.Mutex
	tasks  map[string]*retryTask
	closed bool

	wg sync.WaitGroup
}

type retryTask struct {
	attempt int
	timer   *time.Timer
}

// NewRetryWorker builds the worker. process is invoked from timer
// goroutines; it must be safe for concurrent use.
func NewRetryWorker(cfg config.Retry, process RetryFunc, logger zerolog.Logger) *RetryWorker {
	return &RetryWorker{
		cfg:     cfg,
		process: process,
		log:     logger.With().Str("component", "retry_worker").Logger(),
		tasks:   make(map[string]*retryTask),
	}
}

// Schedule registers the first retry attempt for a mint. Returns false
// when the mint is already tracked or the worker is stopped.
func (w *RetryWorker) Schedule(ctx context.Context, mint string) bool {
	return w.schedule(ctx, mint, 1)
}

func (w *RetryWorker) schedule(ctx context.Context, mint string, attempt int) bool {
	if attempt > w.cfg.MaxAttempts {
		return false
	}
	delay := w.delayFor(attempt)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	if _, exists := w.tasks[mint]; exists && attempt == 1 {
		return false
	}

	task := &retryTask{attempt: attempt}
	task.timer = time.AfterFunc(delay, func() { w.fire(ctx, mint, attempt) })
	w.tasks[mint] = task

	w.log.Debug().Str("mint", mint).Int("attempt", attempt).Dur("delay", delay).Msg("retry scheduled")
	return true
}

// delayFor computes the exponential backoff delay for an attempt,
// capped at MaxDelay.
func (w *RetryWorker) delayFor(attempt int) time.Duration {
	d := time.Duration(float64(w.cfg.InitialDelay) * math.Pow(w.cfg.Backoff, float64(attempt-1)))
	if w.cfg.MaxDelay > 0 && d > w.cfg.MaxDelay {
		d = w.cfg.MaxDelay
	}
	return d
}

func (w *RetryWorker) fire(ctx context.Context, mint string, attempt int) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	if ctx.Err() != nil {
		w.remove(mint)
		return
	}

	done := w.process(ctx, mint, attempt)
	if done {
		w.remove(mint)
		return
	}
	if attempt >= w.cfg.MaxAttempts {
		w.log.Debug().Str("mint", mint).Int("attempts", attempt).Msg("retry budget exhausted")
		w.remove(mint)
		return
	}

	next := attempt + 1
	delay := w.delayFor(next)
	w.mu.Lock()
	if !w.closed {
		if task, ok := w.tasks[mint]; ok {
			task.attempt = next
			task.timer = time.AfterFunc(delay, func() { w.fire(ctx, mint, next) })
		}
	}
	w.mu.Unlock()
}

func (w *RetryWorker) remove(mint string) {
	w.mu.Lock()
	delete(w.tasks, mint)
	w.mu.Unlock()
}

// Cancel drops the pending task for a mint, if any. Used when a live
// pass reaches a terminal outcome before the retry fires.
func (w *RetryWorker) Cancel(mint string) {
	w.mu.Lock()
	if task, ok := w.tasks[mint]; ok {
		task.timer.Stop()
		delete(w.tasks, mint)
	}
	w.mu.Unlock()
}

// Active reports the number of tracked mints.
func (w *RetryWorker) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

// Stop cancels all pending timers and waits for in-flight passes.
func (w *RetryWorker) Stop() {
	w.mu.Lock()
	w.closed = true
	for mint, task := range w.tasks {
		task.timer.Stop()
		delete(w.tasks, mint)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
