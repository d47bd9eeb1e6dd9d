// Package scheduler runs periodic maintenance jobs such as the verification
// re-check sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. The context is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner. A job never overlaps with its own
// previous run.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

func New(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DiscardLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under a standard five-field expression or a descriptor
// like "@daily" or "@every 1h".
func (s *Scheduler) Add(name, schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err, "duration", time.Since(start))
			return
		}
		s.logger.Info("scheduled job completed", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
}
