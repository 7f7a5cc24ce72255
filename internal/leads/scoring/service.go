package scoring

import (
	"context"
	"errors"
	"time"

	"omnichat_backend/internal/events"
	"omnichat_backend/internal/leads/domain"
	"omnichat_backend/internal/leads/repository"
	"omnichat_backend/platform/apperr"
	"omnichat_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultBatchSize   = 200
	defaultConcurrency = 8
)

// Repository is the lead storage the service reads snapshots from and writes scores to.
type Repository interface {
	GetSnapshot(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Lead, error)
	ListSnapshots(ctx context.Context, tenantID uuid.UUID, after *repository.Cursor, limit int) ([]domain.Lead, error)
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	UpdateScore(ctx context.Context, params repository.UpdateScoreParams) error
}

// Cache stores evaluated results. Implementations must treat a miss as found=false, err=nil.
type Cache interface {
	Get(ctx context.Context, tenantID, leadID uuid.UUID) (Result, bool, error)
	Set(ctx context.Context, result Result) error
	Invalidate(ctx context.Context, tenantID, leadID uuid.UUID) error
}

// ReportWriter persists a tenant-wide score report and returns its location.
type ReportWriter interface {
	WriteScoreReport(ctx context.Context, tenantID uuid.UUID, generatedAt time.Time, results []Result) (string, error)
}

// Summary reports the outcome of a tenant-wide or global recalculation.
type Summary struct {
	Tenants   int           `json:"tenants"`
	Scored    int           `json:"scored"`
	Updated   int           `json:"updated"`
	ByLabel   map[Label]int `json:"byLabel"`
	ReportKey string        `json:"reportKey,omitempty"`
	Duration  time.Duration `json:"durationNs"`
}

func newSummary() Summary {
	byLabel := make(map[Label]int, 5)
	for _, l := range Labels() {
		byLabel[l] = 0
	}
	return Summary{ByLabel: byLabel}
}

func (s *Summary) merge(other Summary) {
	s.Tenants += other.Tenants
	s.Scored += other.Scored
	s.Updated += other.Updated
	for l, n := range other.ByLabel {
		s.ByLabel[l] += n
	}
}

// Service connects the pure scorer to storage, cache, events and reports.
// It never changes the scoring math.
type Service struct {
	repo        Repository
	scorer      *Scorer
	bus         events.Bus
	cache       Cache
	reports     ReportWriter
	log         *logger.Logger
	batchSize   int
	concurrency int
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithCache enables the result cache.
func WithCache(c Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithReportWriter enables CSV reports after tenant recalculations.
func WithReportWriter(w ReportWriter) ServiceOption {
	return func(s *Service) { s.reports = w }
}

// WithBatchSize overrides the page size used for tenant recalculations.
func WithBatchSize(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithConcurrency overrides the number of goroutines scoring a page.
func WithConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a scoring service.
func NewService(repo Repository, scorer *Scorer, bus events.Bus, log *logger.Logger, opts ...ServiceOption) *Service {
	InitMetrics()
	s := &Service{
		repo:        repo,
		scorer:      scorer,
		bus:         bus,
		log:         log,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scorer exposes the scorer for stateless endpoints.
func (s *Service) Scorer() *Scorer {
	return s.scorer
}

// Preview evaluates an inline lead without touching storage.
func (s *Service) Preview(lead domain.Lead) Result {
	res := s.scorer.Evaluate(lead)
	recordScore(res.Score, res.Label)
	return res
}

// Get returns the current score of a stored lead, serving from cache when possible.
// It does not persist anything.
func (s *Service) Get(ctx context.Context, leadID, tenantID uuid.UUID) (Result, error) {
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, tenantID, leadID)
		if err != nil {
			s.log.WithContext(ctx).Warn("score cache read failed", "leadId", leadID, "error", err)
		} else if found {
			return cached, nil
		}
	}

	lead, err := s.repo.GetSnapshot(ctx, leadID, tenantID)
	if err != nil {
		return Result{}, s.repoErr("scoring.Get", err)
	}

	res := s.Preview(lead)
	s.cacheResult(ctx, res)
	return res, nil
}

// Recalculate scores a stored lead, persists the score when it changed and
// announces the outcome on the bus.
func (s *Service) Recalculate(ctx context.Context, leadID, tenantID uuid.UUID) (Result, error) {
	start := time.Now()
	defer func() {
		recalculationDuration.WithLabelValues("lead").Observe(time.Since(start).Seconds())
	}()

	lead, err := s.repo.GetSnapshot(ctx, leadID, tenantID)
	if err != nil {
		return Result{}, s.repoErr("scoring.Recalculate", err)
	}

	res := s.Preview(lead)
	persisted := false
	if needsPersist(lead, res) {
		if err := s.persist(ctx, res); err != nil {
			return Result{}, s.repoErr("scoring.Recalculate", err)
		}
		persisted = true
	}
	s.cacheResult(ctx, res)

	scored := events.LeadScored{
		BaseEvent: events.NewBaseEventAt(res.ComputedAt),
		LeadID:    res.LeadID,
		TenantID:  res.TenantID,
		Score:     res.Score,
		Label:     string(res.Label),
		Version:   res.Version,
		Persisted: persisted,
	}
	if lead.ScoredAt != nil {
		prev := lead.Score
		scored.PreviousScore = &prev
	}
	s.bus.Publish(ctx, scored)
	s.publishIfBecameHot(ctx, lead, res)

	s.log.WithContext(ctx).Info("lead score recalculated",
		"leadId", res.LeadID,
		"score", res.Score,
		"label", res.Label,
		"persisted", persisted,
	)
	return res, nil
}

// RecalculateTenant rescores every lead of a tenant page by page and persists
// the scores that changed.
func (s *Service) RecalculateTenant(ctx context.Context, tenantID uuid.UUID) (Summary, error) {
	start := time.Now()
	summary := newSummary()
	summary.Tenants = 1

	var (
		cursor  *repository.Cursor
		results []Result
	)
	now := s.scorer.Now().UTC()

	for {
		page, err := s.repo.ListSnapshots(ctx, tenantID, cursor, s.batchSize)
		if err != nil {
			return summary, s.repoErr("scoring.RecalculateTenant", err)
		}
		if len(page) == 0 {
			break
		}

		breakdowns, err := s.scorer.table.computeAllConcurrent(ctx, page, now, s.concurrency)
		if err != nil {
			return summary, apperr.Wrap(apperr.KindInternal, "recalculation interrupted", err).WithOp("scoring.RecalculateTenant")
		}

		for i, lead := range page {
			res := s.batchResult(lead, breakdowns[i], now)
			recordScore(res.Score, res.Label)
			summary.Scored++
			summary.ByLabel[res.Label]++
			if s.reports != nil {
				results = append(results, res)
			}

			if !needsPersist(lead, res) {
				continue
			}
			if err := s.persist(ctx, res); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					// Deleted between listing and writing.
					continue
				}
				return summary, s.repoErr("scoring.RecalculateTenant", err)
			}
			summary.Updated++
			if s.cache != nil {
				if err := s.cache.Invalidate(ctx, tenantID, lead.ID); err != nil {
					s.log.WithContext(ctx).Warn("score cache invalidate failed", "leadId", lead.ID, "error", err)
				}
			}
			s.publishIfBecameHot(ctx, lead, res)
		}

		if len(page) < s.batchSize {
			break
		}
		cursor = repository.CursorAfter(page[len(page)-1])
	}

	if s.reports != nil && len(results) > 0 {
		key, err := s.reports.WriteScoreReport(ctx, tenantID, now, results)
		if err != nil {
			s.log.WithContext(ctx).Error("score report upload failed", "tenantId", tenantID, "error", err)
		} else {
			summary.ReportKey = key
		}
	}

	summary.Duration = time.Since(start)
	recalculationDuration.WithLabelValues("tenant").Observe(summary.Duration.Seconds())
	s.log.WithContext(ctx).Info("tenant lead scores recalculated",
		"tenantId", tenantID,
		"scored", summary.Scored,
		"updated", summary.Updated,
		"durationMs", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

// RecalculateAll runs RecalculateTenant for every tenant with live leads.
// Recency decays daily, so this runs on a schedule. A failing tenant is logged
// and skipped; the first such error is returned after all tenants ran.
func (s *Service) RecalculateAll(ctx context.Context) (Summary, error) {
	start := time.Now()
	total := newSummary()

	tenants, err := s.repo.ListTenantIDs(ctx)
	if err != nil {
		return total, s.repoErr("scoring.RecalculateAll", err)
	}

	var firstErr error
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return total, apperr.Wrap(apperr.KindInternal, "recalculation interrupted", err).WithOp("scoring.RecalculateAll")
		}
		summary, err := s.RecalculateTenant(ctx, tenantID)
		total.merge(summary)
		if err != nil {
			s.log.WithContext(ctx).Error("tenant recalculation failed", "tenantId", tenantID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	total.Duration = time.Since(start)
	recalculationDuration.WithLabelValues("all").Observe(total.Duration.Seconds())
	return total, firstErr
}

func (s *Service) batchResult(lead domain.Lead, b Breakdown, now time.Time) Result {
	score := b.Score()
	label, color := Classify(score)
	return Result{
		LeadID:     lead.ID,
		TenantID:   lead.TenantID,
		Score:      score,
		Label:      label,
		Color:      color,
		Factors:    b.Factors(),
		Version:    s.scorer.Version(),
		ComputedAt: now,
	}
}

func (s *Service) persist(ctx context.Context, res Result) error {
	err := s.repo.UpdateScore(ctx, repository.UpdateScoreParams{
		LeadID:   res.LeadID,
		TenantID: res.TenantID,
		Score:    res.Score,
		Label:    string(res.Label),
		Version:  res.Version,
		ScoredAt: res.ComputedAt,
	})
	if err != nil {
		return err
	}
	scoreUpdatesTotal.Inc()
	return nil
}

func (s *Service) cacheResult(ctx context.Context, res Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, res); err != nil {
		s.log.WithContext(ctx).Warn("score cache write failed", "leadId", res.LeadID, "error", err)
	}
}

func (s *Service) publishIfBecameHot(ctx context.Context, before domain.Lead, res Result) {
	if res.Label != LabelHot {
		return
	}
	previous := ""
	if before.ScoredAt != nil {
		prevLabel, _ := Classify(before.Score)
		if prevLabel == LabelHot {
			return
		}
		previous = string(prevLabel)
	}

	hotTransitionsTotal.Inc()
	s.bus.Publish(ctx, events.LeadBecameHot{
		BaseEvent:     events.NewBaseEventAt(res.ComputedAt),
		LeadID:        res.LeadID,
		TenantID:      res.TenantID,
		LeadName:      before.Name,
		Score:         res.Score,
		PreviousLabel: previous,
		Factors:       res.Factors,
	})
}

// needsPersist reports whether the stored score is missing, stale or was
// produced by another weight model.
func needsPersist(stored domain.Lead, res Result) bool {
	return stored.ScoredAt == nil || stored.Score != res.Score || stored.ScoreVersion != res.Version
}

// repoErr maps a repository failure onto the apperr taxonomy. Anything but
// a missing lead is logged as a database error.
func (s *Service) repoErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found").WithOp(op)
	}
	s.log.DatabaseError(op, err)
	return apperr.Wrap(apperr.KindInternal, "lead scoring failed", err).WithOp(op)
}
