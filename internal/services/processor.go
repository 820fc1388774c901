package services

import (
	"context"
	"sync"
	"time"

	"bolso/internal/logger"
	"bolso/internal/schedule"
)

// ProcessorRunner drives the daily recurring batch. It has an explicit
// lifecycle: Start launches the loop, Stop blocks until it has exited.
// An overlap guard keeps a slow batch from running concurrently with a
// manually triggered one.
type ProcessorRunner struct {
	recurring RecurringServicer
	scheduler *schedule.Scheduler
	hour      int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	batchMu sync.Mutex
}

// NewProcessorRunner creates a runner firing daily at the given hour in
// the scheduler's timezone.
func NewProcessorRunner(recurring RecurringServicer, scheduler *schedule.Scheduler, hour int) *ProcessorRunner {
	return &ProcessorRunner{
		recurring: recurring,
		scheduler: scheduler,
		hour:      hour,
	}
}

// Start launches the background loop. Calling Start on a running runner
// is a no-op.
func (r *ProcessorRunner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.loop(ctx)
	logger.Get().Infow("recurring processor started", "hour", r.hour, "timezone", r.scheduler.Location().String())
}

// Stop cancels the loop and waits for it to exit.
func (r *ProcessorRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
	logger.Get().Infow("recurring processor stopped")
}

// RunOnce executes one batch immediately, serialized against the
// scheduled runs.
func (r *ProcessorRunner) RunOnce(now time.Time) (*BatchResult, error) {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.recurring.ProcessAll(now)
}

func (r *ProcessorRunner) loop(ctx context.Context) {
	defer close(r.done)

	for {
		now := time.Now().In(r.scheduler.Location())
		next := r.nextRun(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := r.RunOnce(time.Now()); err != nil {
			logger.Get().Errorw("recurring batch run failed", "error", err)
		}
	}
}

// nextRun returns today's run time if it is still ahead, otherwise
// tomorrow's.
func (r *ProcessorRunner) nextRun(now time.Time) time.Time {
	loc := r.scheduler.Location()
	run := time.Date(now.Year(), now.Month(), now.Day(), r.hour, 0, 0, 0, loc)
	if !run.After(now) {
		run = run.AddDate(0, 0, 1)
	}
	return run
}
