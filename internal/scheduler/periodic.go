package scheduler

import (
	"context"
	"fmt"
	"time"

	"omnichat_backend/platform/config"
	"omnichat_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the nightly full recalculation. Recency decays with time,
// so stored scores drift unless every lead is rescored regularly.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	cron := cfg.GetRescoreCron()
	if cron == "" {
		return nil, fmt.Errorf("rescore cron not configured")
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	entryID, err := s.Register(cron, NewRecalculateAllScoresTask(),
		asynq.Queue(queueName(cfg)),
		asynq.Unique(time.Hour),
		asynq.Timeout(2*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("register rescore cron %q: %w", cron, err)
	}
	log.Info("nightly rescore registered", "cron", cron, "entryId", entryID)

	return &Periodic{scheduler: s, log: log}, nil
}

// Run keeps the cron schedule active until ctx is canceled.
func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return fmt.Errorf("start periodic scheduler: %w", err)
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	p.log.Info("periodic scheduler stopped")
	return nil
}
