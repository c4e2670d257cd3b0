package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the bot's periodic background jobs.
type Scheduler struct {
	cron   *cron.Cron
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(log *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddEvery schedules job at the given interval. When the job reports an
// error and retryAfter is positive, one earlier retry is armed; a retry
// that fails again re-arms itself, so a persistently failing job keeps
// attempting at the shorter cadence until it recovers.
func (s *Scheduler) AddEvery(name string, interval, retryAfter time.Duration, job func(ctx context.Context) error) error {
	var run func()
	run = func() {
		if err := job(s.ctx); err != nil {
			s.log.Error("scheduled job failed",
				zap.String("job", name),
				zap.Duration("retry_in", retryAfter),
				zap.Error(err))
			if retryAfter > 0 && s.ctx.Err() == nil {
				time.AfterFunc(retryAfter, run)
			}
		}
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), run); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Info("scheduled job", zap.String("job", name), zap.Duration("interval", interval))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
