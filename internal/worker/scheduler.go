package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DraftCleaner prunes drafts beyond the per-agent limit.
type DraftCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// SessionSweeper evicts idle form sessions.
type SessionSweeper interface {
	Sweep(ctx context.Context) int
}

// ScheduleConfig holds the cron expressions, seconds field included. An
// empty expression disables its job.
type ScheduleConfig struct {
	DraftCleanup string
	SessionSweep string
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers the jobs. Nil collaborators are skipped.
func NewScheduler(cfg ScheduleConfig, drafts DraftCleaner, sessions SessionSweeper, logger *zap.Logger) (*Scheduler, error) {
	logger = logger.Named("scheduler")
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger{logger.Sugar()}), cron.SkipIfStillRunning(cronLogger{logger.Sugar()})),
	)

	if drafts != nil && cfg.DraftCleanup != "" {
		if _, err := c.AddFunc(cfg.DraftCleanup, func() {
			if _, err := drafts.Cleanup(context.Background()); err != nil {
				logger.Error("draft cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule draft cleanup %q: %w", cfg.DraftCleanup, err)
		}
	}
	if sessions != nil && cfg.SessionSweep != "" {
		if _, err := c.AddFunc(cfg.SessionSweep, func() {
			if n := sessions.Sweep(context.Background()); n > 0 {
				logger.Info("sessions expired", zap.Int("count", n))
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule session sweep %q: %w", cfg.SessionSweep, err)
		}
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
