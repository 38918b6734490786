package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type job struct {
	name string
	fn   func(ctx context.Context) error
}

// Queue is a bounded in-process worker pool for fire-and-forget work such as
// Discord member updates after a completed link.
type Queue struct {
	jobs    chan job
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewQueue(workers, size int, timeout time.Duration) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:    make(chan job, size),
		workers: workers,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

// Enqueue schedules fn without blocking. It returns false when the queue is
// full or stopped.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	select {
	case q.jobs <- job{name: name, fn: fn}:
		return true
	default:
		return false
	}
}

// Stop rejects new jobs and drains the queue. Jobs still running when ctx
// ends see their context cancelled.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return fmt.Errorf("job queue stop: %w", ctx.Err())
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("queued job panicked", "job", j.name, "panic", r)
		}
	}()

	err := j.fn(ctx)
	if err != nil {
		slog.Error("queued job failed", "job", j.name, "error", err)
		return
	}
	slog.Debug("queued job finished", "job", j.name)
}
