// Package cache keeps recently evaluated lead scores in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"omnichat_backend/internal/leads/scoring"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lead_score"

// ScoreCache stores scoring.Result values as JSON with a fixed TTL.
type ScoreCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewScoreCache creates a cache. A non-positive ttl falls back to 15 minutes.
func NewScoreCache(client redis.Cmdable, ttl time.Duration) *ScoreCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ScoreCache{client: client, ttl: ttl}
}

func key(tenantID, leadID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, tenantID, leadID)
}

// Get returns the cached result. A miss is (zero, false, nil).
func (c *ScoreCache) Get(ctx context.Context, tenantID, leadID uuid.UUID) (scoring.Result, bool, error) {
	raw, err := c.client.Get(ctx, key(tenantID, leadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return scoring.Result{}, false, nil
	}
	if err != nil {
		return scoring.Result{}, false, fmt.Errorf("get cached score: %w", err)
	}

	var res scoring.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		// A payload from an older layout is treated as a miss.
		return scoring.Result{}, false, nil
	}
	return res, true, nil
}

// Set stores result under its tenant and lead.
func (c *ScoreCache) Set(ctx context.Context, result scoring.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached score: %w", err)
	}
	if err := c.client.Set(ctx, key(result.TenantID, result.LeadID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached score: %w", err)
	}
	return nil
}

// Invalidate removes the cached result of a lead.
func (c *ScoreCache) Invalidate(ctx context.Context, tenantID, leadID uuid.UUID) error {
	if err := c.client.Del(ctx, key(tenantID, leadID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached score: %w", err)
	}
	return nil
}
