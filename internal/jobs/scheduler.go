// Package jobs runs the periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper removes car parts whose report no longer exists.
type Sweeper interface {
	SweepOrphans(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// NewScheduler builds a stopped scheduler. timeout bounds each job run.
func NewScheduler(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
	}
}

// AddOrphanSweep schedules s on a standard cron spec or descriptor such as
// "@hourly". An empty spec leaves the sweep disabled.
func (s *Scheduler) AddOrphanSweep(spec string, sw Sweeper) error {
	if spec == "" {
		s.logger.Info("orphan part sweep disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOrphanSweep(context.Background(), sw) }); err != nil {
		return fmt.Errorf("scheduling orphan sweep %q: %w", spec, err)
	}
	s.logger.Info("orphan part sweep scheduled", "spec", spec)
	return nil
}

// RunOrphanSweep runs one sweep and logs its outcome.
func (s *Scheduler) RunOrphanSweep(ctx context.Context, sw Sweeper) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := sw.SweepOrphans(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "orphan part sweep failed", "removed", n, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "orphan part sweep finished", "removed", n, "duration", time.Since(start))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with a job still running")
	}
}
