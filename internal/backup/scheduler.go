package backup

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner is the snapshot routine driven by the Scheduler.
type Runner interface {
	TrySnapshot(ctx context.Context, now time.Time) (string, error)
}

// Scheduler runs a snapshot every interval until stopped. A tick that fires
// while a snapshot is still running is skipped.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(runner Runner, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, log: log}
}

// Start launches the ticker goroutine. Calling Start on a running
// Scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	ticker := time.NewTicker(s.interval)
	go func(done chan struct{}) {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}(s.done)
	s.log.Info("backup scheduler started", zap.Duration("interval", s.interval))
}

func (s *Scheduler) tick(ctx context.Context) {
	path, err := s.runner.TrySnapshot(ctx, time.Now())
	switch {
	case errors.Is(err, ErrBusy):
		s.log.Warn("backup tick skipped, previous run still active")
	case err != nil:
		s.log.Error("scheduled backup failed", zap.Error(err))
	default:
		s.log.Debug("scheduled backup written", zap.String("path", path))
	}
}

// Stop cancels the ticker and waits for an in-flight snapshot to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("backup scheduler stopped")
}
