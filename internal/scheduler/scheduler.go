package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Runner runs one cycle
type Runner interface {
	RunOnce(ctx context.Context) (*CycleStats, error)
}

// Scheduler repeats cycles until its context is cancelled
type Scheduler struct {
	runner       Runner
	interval     time.Duration
	errorBackoff time.Duration
	logger       *slog.Logger
}

// NewScheduler creates a scheduler. After a failed cycle the next one
// starts after errorBackoff instead of interval.
func NewScheduler(runner Runner, interval, errorBackoff time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if errorBackoff <= 0 {
		errorBackoff = 60 * time.Second
	}
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		errorBackoff: errorBackoff,
		logger:       logger.With("component", "scheduler"),
	}
}

// Start runs a cycle immediately and then keeps going. It returns ctx.Err()
// once ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "error_backoff", s.errorBackoff)

	for {
		wait := s.interval
		if err := s.runCycle(ctx); err != nil {
			s.logger.Error("cycle failed", "error", err, "retry_in", s.errorBackoff)
			wait = s.errorBackoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()

	_, err = s.runner.RunOnce(ctx)
	return err
}
