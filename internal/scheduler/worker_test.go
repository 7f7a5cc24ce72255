package scheduler

import (
	"context"
	"errors"
	"testing"

	"omnichat_backend/internal/leads/scoring"
	"omnichat_backend/platform/apperr"
	"omnichat_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeRecalculator struct {
	leadCalls   []uuid.UUID
	tenantCalls []uuid.UUID
	allCalls    int
	err         error
}

func (f *fakeRecalculator) Recalculate(_ context.Context, leadID, _ uuid.UUID) (scoring.Result, error) {
	f.leadCalls = append(f.leadCalls, leadID)
	return scoring.Result{LeadID: leadID}, f.err
}

func (f *fakeRecalculator) RecalculateTenant(_ context.Context, tenantID uuid.UUID) (scoring.Summary, error) {
	f.tenantCalls = append(f.tenantCalls, tenantID)
	return scoring.Summary{Tenants: 1}, f.err
}

func (f *fakeRecalculator) RecalculateAll(context.Context) (scoring.Summary, error) {
	f.allCalls++
	return scoring.Summary{}, f.err
}

func TestHandlersDispatchByTaskType(t *testing.T) {
	recalc := &fakeRecalculator{}
	mux := newMux(recalc, logger.Nop())
	tenant, lead := uuid.New(), uuid.New()

	leadTask, _ := NewRecalculateLeadScoreTask(tenant, lead)
	tenantTask, _ := NewRecalculateTenantScoresTask(tenant)

	for _, task := range []*asynq.Task{leadTask, tenantTask, NewRecalculateAllScoresTask()} {
		if err := mux.ProcessTask(context.Background(), task); err != nil {
			t.Fatalf("%s: unexpected error: %v", task.Type(), err)
		}
	}

	if len(recalc.leadCalls) != 1 || recalc.leadCalls[0] != lead {
		t.Fatalf("expected one lead recalculation for %s, got %v", lead, recalc.leadCalls)
	}
	if len(recalc.tenantCalls) != 1 || recalc.tenantCalls[0] != tenant {
		t.Fatalf("expected one tenant recalculation, got %v", recalc.tenantCalls)
	}
	if recalc.allCalls != 1 {
		t.Fatalf("expected one full recalculation, got %d", recalc.allCalls)
	}
}

func TestHandlersSkipRetryForMalformedPayload(t *testing.T) {
	mux := newMux(&fakeRecalculator{}, logger.Nop())
	task := asynq.NewTask(TaskRecalculateLeadScore, []byte(`{"tenantId":"nope","leadId":"x"}`))

	err := mux.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandlersSkipRetryForMissingLead(t *testing.T) {
	recalc := &fakeRecalculator{err: apperr.NotFound("lead not found")}
	mux := newMux(recalc, logger.Nop())
	task, _ := NewRecalculateLeadScoreTask(uuid.New(), uuid.New())

	err := mux.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for missing lead, got %v", err)
	}
}

func TestHandlersRetryTransientFailures(t *testing.T) {
	recalc := &fakeRecalculator{err: errors.New("db down")}
	mux := newMux(recalc, logger.Nop())
	task, _ := NewRecalculateTenantScoresTask(uuid.New())

	err := mux.ProcessTask(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestParseRecalculateLeadScorePayloadRoundTrip(t *testing.T) {
	tenant, lead := uuid.New(), uuid.New()
	task, err := NewRecalculateLeadScoreTask(tenant, lead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotTenant, gotLead, err := ParseRecalculateLeadScorePayload(task)
	if err != nil || gotTenant != tenant || gotLead != lead {
		t.Fatalf("expected %s/%s, got %s/%s (%v)", tenant, lead, gotTenant, gotLead, err)
	}
}
