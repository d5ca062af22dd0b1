package app

import (
	"context"
	"sync"
	"time"

	"foundry-course-service/internal/domain"
	"go.uber.org/zap"
)

// AsyncProgressWriter persists progress in the background. Writes are applied one at
// a time in submission order and are best effort: failures are logged and never
// retried.
type AsyncProgressWriter struct {
	store   ProgressStore
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	mu      sync.Mutex
	queue   []func(ctx context.Context)
	running bool
}

func NewAsyncProgressWriter(store ProgressStore, log *zap.Logger, timeout time.Duration) *AsyncProgressWriter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncProgressWriter{store: store, log: log, timeout: timeout}
}

func (w *AsyncProgressWriter) WriteProgress(rec domain.ProgressRecord) {
	w.enqueue(func(ctx context.Context) {
		if err := w.store.Upsert(ctx, rec.UserID, rec.SubModuleID, rec.Completed, rec.Tries); err != nil {
			w.log.Warn("persist progress failed",
				zap.String("user_id", rec.UserID),
				zap.String("submodule_id", rec.SubModuleID),
				zap.Bool("completed", rec.Completed),
				zap.Error(err),
			)
		}
	})
}

func (w *AsyncProgressWriter) WriteAttempt(attempt domain.QuizAttempt) {
	w.enqueue(func(ctx context.Context) {
		if err := w.store.RecordAttempt(ctx, attempt); err != nil {
			w.log.Warn("record quiz attempt failed",
				zap.String("user_id", attempt.UserID),
				zap.String("quiz_id", attempt.QuizID),
				zap.Error(err),
			)
		}
	})
}

// Wait blocks until queued writes have finished. Used on shutdown and in tests.
func (w *AsyncProgressWriter) Wait() {
	w.wg.Wait()
}

// enqueue never blocks; a worker goroutine is started on demand and exits once the
// queue is empty.
func (w *AsyncProgressWriter) enqueue(job func(ctx context.Context)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.wg.Add(1)
	w.queue = append(w.queue, job)
	if !w.running {
		w.running = true
		go w.drain()
	}
}

func (w *AsyncProgressWriter) drain() {
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.running = false
			w.mu.Unlock()
			return
		}
		job := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
		w.mu.Unlock()

		w.run(job)
	}
}

func (w *AsyncProgressWriter) run(job func(ctx context.Context)) {
	defer w.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	job(ctx)
}
