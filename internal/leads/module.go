// Package leads provides the lead scoring bounded context module.
package leads

import (
	"fmt"

	"omnichat_backend/internal/events"
	apphttp "omnichat_backend/internal/http"
	"omnichat_backend/internal/leads/handler"
	"omnichat_backend/internal/leads/repository"
	"omnichat_backend/internal/leads/scoring"
	"omnichat_backend/platform/config"
	"omnichat_backend/platform/logger"
	"omnichat_backend/platform/validator"
)

// Deps are the optional collaborators of the module. Nil fields disable the
// feature: no cache, inline recalculation, no CSV reports.
type Deps struct {
	Cache   scoring.Cache
	Queue   handler.Enqueuer
	Reports scoring.ReportWriter
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *scoring.Service
}

// NewModule loads the weight model and wires repository, service and handlers.
func NewModule(db repository.DBTX, eventBus events.Bus, val *validator.Validator, cfg config.ScoringConfig, log *logger.Logger, deps Deps) (*Module, error) {
	weights, err := scoring.LoadWeights(cfg.GetScoringWeightsFile())
	if err != nil {
		return nil, fmt.Errorf("load scoring weights: %w", err)
	}
	scorer, err := scoring.NewScorer(weights)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring weights: %w", err)
	}
	log.Info("lead scoring model loaded", "version", scorer.Version(), "file", cfg.GetScoringWeightsFile())

	repo := repository.New(db)

	var opts []scoring.ServiceOption
	if deps.Cache != nil {
		opts = append(opts, scoring.WithCache(deps.Cache))
	}
	if deps.Reports != nil {
		opts = append(opts, scoring.WithReportWriter(deps.Reports))
	}
	svc := scoring.NewService(repo, scorer, eventBus, log, opts...)

	return &Module{
		handler: handler.New(svc, deps.Queue, val, log),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the scoring service; the worker and backfill drive it directly.
func (m *Module) Service() *scoring.Service {
	return m.service
}

// RegisterRoutes mounts the scoring API on the protected group and the
// database webhook on the webhook group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterWebhookRoutes(ctx.Webhooks)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
