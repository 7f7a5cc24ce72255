package scoring

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"omnichat_backend/internal/events"
	"omnichat_backend/internal/leads/domain"
	"omnichat_backend/internal/leads/repository"
	"omnichat_backend/platform/apperr"
	"omnichat_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]domain.Lead
	order   []uuid.UUID
	updates []repository.UpdateScoreParams
	failGet error
}

func newFakeRepo(leads ...domain.Lead) *fakeRepo {
	r := &fakeRepo{leads: make(map[uuid.UUID]domain.Lead)}
	for _, l := range leads {
		r.leads[l.ID] = l
		r.order = append(r.order, l.ID)
	}
	return r
}

func (r *fakeRepo) GetSnapshot(_ context.Context, leadID, tenantID uuid.UUID) (domain.Lead, error) {
	if r.failGet != nil {
		return domain.Lead{}, r.failGet
	}
	l, ok := r.leads[leadID]
	if !ok || l.TenantID != tenantID {
		return domain.Lead{}, repository.ErrNotFound
	}
	return l.Clone(), nil
}

func (r *fakeRepo) ListSnapshots(_ context.Context, tenantID uuid.UUID, after *repository.Cursor, limit int) ([]domain.Lead, error) {
	out := make([]domain.Lead, 0, limit)
	started := after == nil
	for _, id := range r.order {
		l := r.leads[id]
		if l.TenantID != tenantID {
			continue
		}
		if !started {
			started = id == after.ID
			continue
		}
		out = append(out, l.Clone())
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) ListTenantIDs(context.Context) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0)
	for _, id := range r.order {
		t := r.leads[id].TenantID
		if !seen[t] {
			seen[t] = true
			ids = append(ids, t)
		}
	}
	return ids, nil
}

func (r *fakeRepo) UpdateScore(_ context.Context, p repository.UpdateScoreParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[p.LeadID]
	if !ok {
		return repository.ErrNotFound
	}
	l.Score = p.Score
	l.ScoreVersion = p.Version
	at := p.ScoredAt
	l.ScoredAt = &at
	r.leads[p.LeadID] = l
	r.updates = append(r.updates, p)
	return nil
}

type fakeCache struct {
	items       map[uuid.UUID]Result
	invalidated []uuid.UUID
}

func newFakeCache() *fakeCache { return &fakeCache{items: map[uuid.UUID]Result{}} }

func (c *fakeCache) Get(_ context.Context, _, leadID uuid.UUID) (Result, bool, error) {
	r, ok := c.items[leadID]
	return r, ok, nil
}

func (c *fakeCache) Set(_ context.Context, r Result) error {
	c.items[r.LeadID] = r
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, _, leadID uuid.UUID) error {
	delete(c.items, leadID)
	c.invalidated = append(c.invalidated, leadID)
	return nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) hotEvents() []events.LeadBecameHot {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.LeadBecameHot
	for _, e := range b.published {
		if hot, ok := e.(events.LeadBecameHot); ok {
			out = append(out, hot)
		}
	}
	return out
}

type fakeReports struct {
	tenant  uuid.UUID
	results []Result
}

func (f *fakeReports) WriteScoreReport(_ context.Context, tenantID uuid.UUID, _ time.Time, results []Result) (string, error) {
	f.tenant = tenantID
	f.results = results
	return tenantID.String() + "/lead-scores/report.csv", nil
}

func newTestService(t *testing.T, repo Repository, bus events.Bus, opts ...ServiceOption) *Service {
	t.Helper()
	scorer, err := NewScorer(DefaultWeights(), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}
	return NewService(repo, scorer, bus, logger.Nop(), opts...)
}

func storedLead(tenantID uuid.UUID, lead domain.Lead) domain.Lead {
	lead.ID = uuid.New()
	lead.TenantID = tenantID
	return lead
}

func TestRecalculatePersistsAndPublishesHotTransition(t *testing.T) {
	tenant := uuid.New()
	lead := storedLead(tenant, exampleLead())
	lead.Name = "Acme Corp"
	prevScoredAt := fixedNow.Add(-24 * time.Hour)
	lead.Score = 55
	lead.ScoredAt = &prevScoredAt

	repo := newFakeRepo(lead)
	bus := &recordingBus{}
	cache := newFakeCache()
	svc := newTestService(t, repo, bus, WithCache(cache))

	res, err := svc.Recalculate(context.Background(), lead.ID, tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 88 || res.Label != LabelHot {
		t.Fatalf("expected 88/Hot, got %d/%s", res.Score, res.Label)
	}
	if len(repo.updates) != 1 || repo.updates[0].Score != 88 || repo.updates[0].Label != "Hot" {
		t.Fatalf("expected one persisted update of 88/Hot, got %+v", repo.updates)
	}
	if _, ok := cache.items[lead.ID]; !ok {
		t.Fatal("expected result to be cached")
	}

	hot := bus.hotEvents()
	if len(hot) != 1 {
		t.Fatalf("expected one LeadBecameHot event, got %d", len(hot))
	}
	if hot[0].PreviousLabel != string(LabelNeutral) || hot[0].LeadName != "Acme Corp" {
		t.Fatalf("unexpected hot event: %+v", hot[0])
	}

	var scored *events.LeadScored
	for _, e := range bus.published {
		if ev, ok := e.(events.LeadScored); ok {
			scored = &ev
		}
	}
	if scored == nil || scored.PreviousScore == nil || *scored.PreviousScore != 55 || !scored.Persisted {
		t.Fatalf("unexpected LeadScored event: %+v", scored)
	}
}

func TestRecalculateSkipsWriteWhenUnchanged(t *testing.T) {
	tenant := uuid.New()
	lead := storedLead(tenant, exampleLead())
	at := fixedNow
	lead.Score = 88
	lead.ScoreVersion = ScoreVersion
	lead.ScoredAt = &at

	repo := newFakeRepo(lead)
	bus := &recordingBus{}
	svc := newTestService(t, repo, bus)

	if _, err := svc.Recalculate(context.Background(), lead.ID, tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("expected no writes, got %d", len(repo.updates))
	}
	if len(bus.hotEvents()) != 0 {
		t.Fatal("expected no hot transition for an already-hot lead")
	}
}

func TestRecalculateRewritesScoreFromOlderModel(t *testing.T) {
	tenant := uuid.New()
	lead := storedLead(tenant, exampleLead())
	at := fixedNow.Add(-time.Hour)
	lead.Score = 88
	lead.ScoreVersion = "2025-01-v0"
	lead.ScoredAt = &at

	repo := newFakeRepo(lead)
	bus := &recordingBus{}
	svc := newTestService(t, repo, bus)

	if _, err := svc.Recalculate(context.Background(), lead.ID, tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("expected one write for the version change, got %d", len(repo.updates))
	}
	if repo.updates[0].Version != ScoreVersion || repo.updates[0].Score != 88 {
		t.Fatalf("expected 88 at %s, got %+v", ScoreVersion, repo.updates[0])
	}
	if len(bus.hotEvents()) != 0 {
		t.Fatal("expected no hot transition when only the version changed")
	}
}

func TestRecalculateNotFound(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), &recordingBus{})

	_, err := svc.Recalculate(context.Background(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRecalculateWrapsStorageFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.failGet = errors.New("connection refused")
	svc := newTestService(t, repo, &recordingBus{})

	_, err := svc.Recalculate(context.Background(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestGetServesFromCacheWithoutPersisting(t *testing.T) {
	tenant := uuid.New()
	lead := storedLead(tenant, exampleLead())
	repo := newFakeRepo(lead)
	cache := newFakeCache()
	svc := newTestService(t, repo, &recordingBus{}, WithCache(cache))

	first, err := svc.Get(context.Background(), lead.ID, tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatal("expected Get not to persist")
	}

	cache.items[lead.ID] = Result{LeadID: lead.ID, Score: 1, Label: LabelCold}
	second, err := svc.Get(context.Background(), lead.ID, tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Score != 88 || second.Score != 1 {
		t.Fatalf("expected computed 88 then cached 1, got %d and %d", first.Score, second.Score)
	}
}

func TestRecalculateTenantPagesAndPersistsChanges(t *testing.T) {
	tenant := uuid.New()
	other := uuid.New()

	var leads []domain.Lead
	for i := range 5 {
		l := storedLead(tenant, bareLead())
		l.CreatedAt = fixedNow.Add(time.Duration(i) * time.Minute)
		leads = append(leads, l)
	}
	// Already stored with the right score: must not be rewritten.
	at := fixedNow
	leads[0].Score = Compute(leads[0], fixedNow, DefaultWeights()).Score()
	leads[0].ScoreVersion = ScoreVersion
	leads[0].ScoredAt = &at
	hot := storedLead(tenant, exampleLead())
	leads = append(leads, hot, storedLead(other, exampleLead()))

	repo := newFakeRepo(leads...)
	bus := &recordingBus{}
	cache := newFakeCache()
	reports := &fakeReports{}
	svc := newTestService(t, repo, bus, WithCache(cache), WithReportWriter(reports), WithBatchSize(2), WithConcurrency(3))

	summary, err := svc.RecalculateTenant(context.Background(), tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Scored != 6 {
		t.Fatalf("expected 6 scored leads, got %d", summary.Scored)
	}
	if summary.Updated != 5 {
		t.Fatalf("expected 5 updated leads, got %d", summary.Updated)
	}
	if summary.ByLabel[LabelHot] != 1 {
		t.Fatalf("expected 1 hot lead, got %v", summary.ByLabel)
	}
	if len(bus.hotEvents()) != 1 || bus.hotEvents()[0].LeadID != hot.ID {
		t.Fatalf("expected one hot event for %s", hot.ID)
	}
	if len(cache.invalidated) != 5 {
		t.Fatalf("expected 5 cache invalidations, got %d", len(cache.invalidated))
	}
	if reports.tenant != tenant || len(reports.results) != 6 {
		t.Fatalf("expected a 6-row report for tenant, got %d rows", len(reports.results))
	}
	if summary.ReportKey == "" {
		t.Fatal("expected report key in summary")
	}
	for _, u := range repo.updates {
		if u.TenantID != tenant {
			t.Fatalf("updated a lead of another tenant: %+v", u)
		}
	}
}

func TestRecalculateAllCoversEveryTenant(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	repo := newFakeRepo(
		storedLead(a, exampleLead()),
		storedLead(b, bareLead()),
		storedLead(b, exampleLead()),
	)
	svc := newTestService(t, repo, &recordingBus{})

	summary, err := svc.RecalculateAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Tenants != 2 || summary.Scored != 3 || summary.Updated != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRecalculateTenantHotEventCarriesFactors(t *testing.T) {
	tenant := uuid.New()
	lead := storedLead(tenant, exampleLead())
	at := fixedNow.Add(-24 * time.Hour)
	lead.Score = 50
	lead.ScoreVersion = ScoreVersion
	lead.ScoredAt = &at

	repo := newFakeRepo(lead)
	bus := &recordingBus{}
	svc := newTestService(t, repo, bus)

	if _, err := svc.RecalculateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hot := bus.hotEvents()
	if len(hot) != 1 {
		t.Fatalf("expected one LeadBecameHot event, got %d", len(hot))
	}
	want := map[string]float64{
		"source":   15,
		"stage":    25,
		"tags":     12.5,
		"activity": 10,
		"value":    15,
		"recency":  10,
	}
	for name, points := range want {
		if got, ok := hot[0].Factors[name]; !ok || got != points {
			t.Fatalf("expected factor %s=%v, got %v", name, points, hot[0].Factors)
		}
	}
	if hot[0].PreviousLabel != string(LabelNeutral) {
		t.Fatalf("expected previous label Neutral, got %q", hot[0].PreviousLabel)
	}
}

func TestRecalculateTenantRewritesOlderModelScores(t *testing.T) {
	tenant := uuid.New()
	lead := storedLead(tenant, bareLead())
	at := fixedNow
	lead.Score = Compute(lead, fixedNow, DefaultWeights()).Score()
	lead.ScoreVersion = "2025-01-v0"
	lead.ScoredAt = &at

	repo := newFakeRepo(lead)
	svc := newTestService(t, repo, &recordingBus{})

	summary, err := svc.RecalculateTenant(context.Background(), tenant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Updated != 1 || repo.updates[0].Version != ScoreVersion {
		t.Fatalf("expected the row to be restamped with %s, got %+v", ScoreVersion, repo.updates)
	}
}

func TestRecalculateTenantLogsWithRequestContext(t *testing.T) {
	tenant := uuid.New()
	repo := newFakeRepo(storedLead(tenant, bareLead()))
	scorer, err := NewScorer(DefaultWeights(), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}
	var buf bytes.Buffer
	svc := NewService(repo, scorer, &recordingBus{}, logger.NewWithWriter("production", &buf))

	ctx := context.WithValue(context.Background(), logger.RequestIDKey, "req-42")
	if _, err := svc.RecalculateTenant(ctx, tenant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "tenant lead scores recalculated") {
			if !strings.Contains(line, `"request_id":"req-42"`) {
				t.Fatalf("expected request id on summary log, got %s", line)
			}
			return
		}
	}
	t.Fatalf("summary log line missing: %s", buf.String())
}

func TestStorageFailuresAreLoggedAsDatabaseErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.failGet = errors.New("connection refused")
	scorer, err := NewScorer(DefaultWeights(), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("new scorer: %v", err)
	}
	var buf bytes.Buffer
	svc := NewService(repo, scorer, &recordingBus{}, logger.NewWithWriter("production", &buf))

	if _, err := svc.Recalculate(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
	out := buf.String()
	if !strings.Contains(out, "database_error") || !strings.Contains(out, "scoring.Recalculate") {
		t.Fatalf("expected a database_error log for scoring.Recalculate, got %s", out)
	}
}
