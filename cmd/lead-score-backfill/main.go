// Command lead-score-backfill recalculates and stores lead scores synchronously,
// for every tenant or for the one given with -tenant. Run it after changing the
// weight model.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"omnichat_backend/internal/events"
	"omnichat_backend/internal/leads"
	"omnichat_backend/internal/leads/cache"
	"omnichat_backend/internal/leads/scoring"
	"omnichat_backend/platform/config"
	"omnichat_backend/platform/db"
	"omnichat_backend/platform/logger"
	"omnichat_backend/platform/redisconn"
	"omnichat_backend/platform/validator"

	"github.com/google/uuid"
)

func main() {
	tenantFlag := flag.String("tenant", "", "only recalculate this tenant (organization id)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead score backfill", "tenant", *tenantFlag)

	var tenantID uuid.UUID
	if *tenantFlag != "" {
		tenantID, err = uuid.Parse(*tenantFlag)
		if err != nil {
			log.Error("invalid -tenant flag", "error", err)
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	// Hot transitions found by a backfill are not alerted; nobody subscribes.
	eventBus := events.NewInMemoryBus(log)

	// Scores the backfill rewrites must not be served stale from the cache.
	var deps leads.Deps
	if cfg.GetRedisURL() != "" {
		redisClient, err := redisconn.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
		if err != nil {
			log.Error("failed to initialize redis client", "error", err)
			panic("failed to initialize redis client: " + err.Error())
		}
		defer func() { _ = redisClient.Close() }()
		deps.Cache = cache.NewScoreCache(redisClient, cfg.GetScoreCacheTTL())
	} else {
		log.Warn("REDIS_URL not configured; cached scores expire on their own TTL")
	}

	leadsModule, err := leads.NewModule(pool, eventBus, validator.New(), cfg, log, deps)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}
	svc := leadsModule.Service()

	var summary scoring.Summary
	if tenantID != uuid.Nil {
		summary, err = svc.RecalculateTenant(ctx, tenantID)
	} else {
		summary, err = svc.RecalculateAll(ctx)
	}
	eventBus.Wait()

	log.Info("lead score backfill complete",
		"tenants", summary.Tenants,
		"scored", summary.Scored,
		"updated", summary.Updated,
		"byLabel", summary.ByLabel,
		"durationMs", summary.Duration.Milliseconds(),
	)
	if err != nil {
		log.Error("lead score backfill finished with errors", "error", err)
		os.Exit(1)
	}
}
