package transport

import (
	"reflect"
	"strings"

	"omnichat_backend/internal/leads/domain"
	"omnichat_backend/internal/leads/scoring"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ToDomain converts a validated snapshot into a domain lead for tenantID.
// A missing id gets a random one so results can still be correlated.
func (r LeadSnapshotRequest) ToDomain(tenantID uuid.UUID) domain.Lead {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		id = uuid.New()
	}

	return domain.Lead{
		ID:       id,
		TenantID: tenantID,
		Name:     strings.TrimSpace(r.Name),
		Source:   domain.ParseSource(r.Source),
		Stage:    domain.ParseStage(r.Stage),
		Tags: lo.FilterMap(r.Tags, func(tag string, _ int) (string, bool) {
			tag = strings.TrimSpace(tag)
			return tag, tag != ""
		}),
		Timeline: lo.Map(r.Timeline, func(e TimelineEventRequest, _ int) domain.TimelineEvent {
			return domain.TimelineEvent{Type: e.Type, Description: e.Description, OccurredAt: e.OccurredAt.UTC()}
		}),
		Notes: lo.Map(r.Notes, func(n NoteRequest, _ int) domain.Note {
			return domain.Note{Body: n.Body, CreatedAt: n.CreatedAt.UTC()}
		}),
		Tasks: lo.Map(r.Tasks, func(t TaskRequest, _ int) domain.Task {
			return domain.Task{Title: t.Title, Status: domain.TaskStatus(t.Status), DueAt: t.DueAt}
		}),
		LeadValue: domain.SanitizeAmount(r.LeadValue),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// ToBatchResponse keeps request order; Index is the position in the request.
func ToBatchResponse(results []scoring.Result) BatchScoreResponse {
	return BatchScoreResponse{
		Leads: lo.Map(results, func(r scoring.Result, i int) BatchScoreItem {
			return BatchScoreItem{Index: i, Score: r.Score, Label: r.Label, Color: r.Color}
		}),
	}
}

// LeadRef extracts the lead and tenant a webhook row belongs to. Rows of the
// leads table carry the lead id in "id"; child tables reference it via "lead_id".
func (p WebhookPayload) LeadRef() (leadID, tenantID uuid.UUID, ok bool) {
	record := p.Record
	if record == nil {
		record = p.OldRecord
	}
	if record == nil {
		return uuid.Nil, uuid.Nil, false
	}

	leadKey := "lead_id"
	if p.Table == "leads" {
		leadKey = "id"
	}

	leadID, ok = uuidField(record, leadKey)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	tenantID, ok = uuidField(record, "organization_id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return leadID, tenantID, true
}

// leadScoringColumns are the leads columns the score is computed from.
var leadScoringColumns = []string{
	"organization_id", "source", "stage", "tags", "lead_value", "created_at", "deleted_at",
}

// ScoringInputsChanged reports whether a leads UPDATE touched a column the score
// depends on. Score writes made by this service change none of them. Without
// an old record the change is assumed relevant.
func (p WebhookPayload) ScoringInputsChanged() bool {
	if p.Table != "leads" || p.Type != "UPDATE" || p.Record == nil || p.OldRecord == nil {
		return true
	}
	return lo.SomeBy(leadScoringColumns, func(col string) bool {
		return !reflect.DeepEqual(p.Record[col], p.OldRecord[col])
	})
}

func uuidField(record map[string]any, key string) (uuid.UUID, bool) {
	raw, ok := record[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
