package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs named periodic jobs on cron specs. A job that is still
// running when its next tick arrives is skipped, and panics are recovered.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler() *Scheduler {
	logger := cronLogger{log: slog.Default().With("component", "cron")}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers fn under spec (standard five field cron syntax or
// descriptors such as @every 15m).
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, s.wrap(name, fn))
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	slog.Info("job registered", "job", name, "schedule", spec)
	return nil
}

func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		start := time.Now()
		err := fn(s.ctx)
		if err != nil {
			slog.Error("job failed", "job", name, "error", err, "duration_ms", time.Since(start).Milliseconds())
			return
		}
		slog.Info("job finished", "job", name, "duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		slog.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job scheduler stop: %w", ctx.Err())
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
