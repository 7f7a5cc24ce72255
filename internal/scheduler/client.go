package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"omnichat_backend/platform/config"
	"omnichat_backend/platform/redisconn"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// leadTaskUniqueness collapses bursts of webhook-triggered recalculations
	// for the same lead into one task.
	leadTaskUniqueness   = 30 * time.Second
	tenantTaskUniqueness = 5 * time.Minute
	taskTimeout          = 10 * time.Minute
)

type Client struct {
	client *asynq.Client
	queue  string
}

// ScoreEnqueuer schedules background recalculations.
type ScoreEnqueuer interface {
	EnqueueLeadRecalculation(ctx context.Context, tenantID, leadID uuid.UUID) error
	EnqueueTenantRecalculation(ctx context.Context, tenantID uuid.UUID) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueLeadRecalculation schedules a single-lead recalculation. A duplicate
// within the uniqueness window is not an error.
func (c *Client) EnqueueLeadRecalculation(ctx context.Context, tenantID, leadID uuid.UUID) error {
	task, err := NewRecalculateLeadScoreTask(tenantID, leadID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.Unique(leadTaskUniqueness), asynq.MaxRetry(5))
}

// EnqueueTenantRecalculation schedules a recalculation of every lead of a tenant.
func (c *Client) EnqueueTenantRecalculation(ctx context.Context, tenantID uuid.UUID) error {
	task, err := NewRecalculateTenantScoresTask(tenantID)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.Unique(tenantTaskUniqueness), asynq.MaxRetry(3), asynq.Timeout(taskTimeout))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	opts = append(opts, asynq.Queue(c.queue))
	_, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redisconn.Options(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
