// Package scheduler runs periodic maintenance against the claim service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/claimkeeper/internal/logging"
	"github.com/dmitrijs2005/claimkeeper/internal/server/services"
	"github.com/go-co-op/gocron/v2"
)

// ClientIP is the address recorded on audit events raised by scheduled jobs.
const ClientIP = "scheduler"

// Maintainer is the subset of the claim service the jobs call.
type Maintainer interface {
	CleanupExpiredTokens(ctx context.Context, olderThanDays int) services.CleanupResult
	GetStatistics(ctx context.Context) services.StatisticsResult
}

type Config struct {
	RetentionDays   int
	CleanupInterval time.Duration
	StatsInterval   time.Duration
}

type Scheduler struct {
	svc    Maintainer
	cfg    Config
	logger logging.Logger
}

func New(svc Maintainer, cfg Config, logger logging.Logger) *Scheduler {
	return &Scheduler{svc: svc, cfg: cfg, logger: logger.With("module", "scheduler")}
}

// Run registers the jobs, starts them and blocks until ctx is done.
// A non-positive interval disables the corresponding job.
func (s *Scheduler) Run(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("scheduler init error: %w", err)
	}

	jobs := []struct {
		name     string
		interval time.Duration
		task     func(context.Context)
	}{
		{"cleanup_expired_tokens", s.cfg.CleanupInterval, s.Cleanup},
		{"log_statistics", s.cfg.StatsInterval, s.LogStatistics},
	}

	for _, j := range jobs {
		if j.interval <= 0 {
			continue
		}
		task := j.task
		_, err := sched.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(func() { task(ctx) }),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return fmt.Errorf("scheduler job %s error: %w", j.name, err)
		}
		s.logger.Info(ctx, "job scheduled", "job", j.name, "interval", j.interval.String())
	}

	sched.Start()
	<-ctx.Done()

	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown error: %w", err)
	}
	s.logger.Info(context.Background(), "scheduler stopped")
	return nil
}

// Cleanup purges tokens older than the retention period.
func (s *Scheduler) Cleanup(ctx context.Context) {
	ctx = services.WithClientIP(ctx, ClientIP)
	res := s.svc.CleanupExpiredTokens(ctx, s.cfg.RetentionDays)
	if !res.Success {
		s.logger.Error(ctx, "scheduled cleanup failed", "error", res.Error)
		return
	}
	s.logger.Info(ctx, "scheduled cleanup done", "deleted", res.Deleted)
}

func (s *Scheduler) LogStatistics(ctx context.Context) {
	ctx = services.WithClientIP(ctx, ClientIP)
	res := s.svc.GetStatistics(ctx)
	if !res.Success || res.Stats == nil {
		s.logger.Error(ctx, "statistics unavailable", "error", res.Error)
		return
	}
	st := res.Stats
	s.logger.Info(ctx, "claim token statistics",
		"total", st.Total,
		"active", st.Active,
		"used", st.Used,
		"expired", st.Expired,
		"window_days", st.Window.Days,
		"redemption_rate", st.Window.RedemptionRate,
	)
}
