package scheduler

import (
	"context"
	"errors"
	"fmt"

	"omnichat_backend/internal/leads/scoring"
	"omnichat_backend/platform/apperr"
	"omnichat_backend/platform/config"
	"omnichat_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Recalculator is the scoring work the worker dispatches to.
type Recalculator interface {
	Recalculate(ctx context.Context, leadID, tenantID uuid.UUID) (scoring.Result, error)
	RecalculateTenant(ctx context.Context, tenantID uuid.UUID) (scoring.Summary, error)
	RecalculateAll(ctx context.Context) (scoring.Summary, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, recalc Recalculator, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	return &Worker{
		server: server,
		mux:    newMux(recalc, log),
		log:    log,
	}, nil
}

func newMux(recalc Recalculator, log *logger.Logger) *asynq.ServeMux {
	h := &handlers{recalc: recalc, log: log}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRecalculateLeadScore, h.recalculateLead)
	mux.HandleFunc(TaskRecalculateTenantScores, h.recalculateTenant)
	mux.HandleFunc(TaskRecalculateAllScores, h.recalculateAll)
	return mux
}

// Run processes tasks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start scheduler worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}

type handlers struct {
	recalc Recalculator
	log    *logger.Logger
}

func (h *handlers) recalculateLead(ctx context.Context, task *asynq.Task) error {
	tenantID, leadID, err := ParseRecalculateLeadScorePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if _, err := h.recalc.Recalculate(ctx, leadID, tenantID); err != nil {
		return retryable(err)
	}
	return nil
}

func (h *handlers) recalculateTenant(ctx context.Context, task *asynq.Task) error {
	tenantID, err := ParseRecalculateTenantScoresPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	summary, err := h.recalc.RecalculateTenant(ctx, tenantID)
	if err != nil {
		return retryable(err)
	}
	h.log.Info("tenant recalculation task done", "tenantId", tenantID, "scored", summary.Scored, "updated", summary.Updated)
	return nil
}

func (h *handlers) recalculateAll(ctx context.Context, _ *asynq.Task) error {
	summary, err := h.recalc.RecalculateAll(ctx)
	if err != nil {
		return retryable(err)
	}
	h.log.Info("nightly recalculation done",
		"tenants", summary.Tenants,
		"scored", summary.Scored,
		"updated", summary.Updated,
		"durationMs", summary.Duration.Milliseconds(),
	)
	return nil
}

// retryable stops retries for leads that no longer exist.
func retryable(err error) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return errors.Join(asynq.SkipRetry, err)
	}
	return err
}
