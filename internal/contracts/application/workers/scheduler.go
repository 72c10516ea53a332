package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDiscountInterval is the default interval between discount runs.
const DefaultDiscountInterval = 24 * time.Hour

// DiscountRunner runs one discount pass over a period.
type DiscountRunner interface {
	Run(ctx context.Context, periodStart, periodEnd time.Time) (Report, error)
}

// DiscountSchedulerConfig configures the scheduler.
type DiscountSchedulerConfig struct {
	Interval time.Duration
	// RunOnStart triggers a run before the first tick.
	RunOnStart bool
}

// DefaultDiscountSchedulerConfig returns the default configuration.
func DefaultDiscountSchedulerConfig() DiscountSchedulerConfig {
	return DiscountSchedulerConfig{
		Interval:   DefaultDiscountInterval,
		RunOnStart: true,
	}
}

// DiscountScheduler runs the discount job for the current month on a ticker.
type DiscountScheduler struct {
	job      DiscountRunner
	config   DiscountSchedulerConfig
	logger   *slog.Logger
	now      func() time.Time
	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewDiscountScheduler creates a new discount scheduler.
func NewDiscountScheduler(job DiscountRunner, config DiscountSchedulerConfig, logger *slog.Logger) *DiscountScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultDiscountInterval
	}
	return &DiscountScheduler{
		job:    job,
		config: config,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Run blocks until the context is cancelled or Stop is called.
func (s *DiscountScheduler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)
	s.logger.Info("discount scheduler started", "interval", s.config.Interval)

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("discount scheduler stopped (context cancelled)")
			return ctx.Err()
		case <-s.stopCh:
			s.logger.Info("discount scheduler stopped (stop signal)")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop signals the scheduler to stop gracefully. It is safe to call more
// than once.
func (s *DiscountScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// IsRunning returns true if the scheduler loop is active.
func (s *DiscountScheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *DiscountScheduler) tick(ctx context.Context) {
	start, end := MonthToDate(s.now())
	if _, err := s.job.Run(ctx, start, end); err != nil {
		if errors.Is(err, ErrJobAlreadyRunning) {
			s.logger.Info("discount run skipped, another instance holds the lock")
			return
		}
		s.logger.Error("discount run failed", "error", err)
	}
}

// MonthToDate returns the window from the first day of the month of now,
// 00:00 UTC, to now.
func MonthToDate(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), now
}
