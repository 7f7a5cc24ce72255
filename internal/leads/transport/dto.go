package transport

import (
	"time"

	"omnichat_backend/internal/leads/scoring"

	"github.com/google/uuid"
)

// Request DTOs

type TimelineEventRequest struct {
	Type        string    `json:"type" validate:"required,max=100"`
	Description string    `json:"description,omitempty" validate:"max=2000"`
	OccurredAt  time.Time `json:"occurredAt" validate:"required"`
}

type NoteRequest struct {
	Body      string    `json:"body" validate:"required,notblank,max=10000"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

type TaskRequest struct {
	Title  string     `json:"title" validate:"required,max=300"`
	Status string     `json:"status" validate:"required,oneof=pending completed"`
	DueAt  *time.Time `json:"dueAt,omitempty"`
}

// LeadSnapshotRequest is an inline lead, scored without touching storage.
// Unknown source and stage strings are accepted and score with the fallback multipliers.
type LeadSnapshotRequest struct {
	ID        string                 `json:"id,omitempty" validate:"omitempty,uuid"`
	Name      string                 `json:"name,omitempty" validate:"max=200"`
	Source    string                 `json:"source,omitempty" validate:"max=100"`
	Stage     string                 `json:"stage,omitempty" validate:"max=100"`
	Tags      []string               `json:"tags,omitempty" validate:"max=100,dive,max=100"`
	Timeline  []TimelineEventRequest `json:"timeline,omitempty" validate:"max=5000,dive"`
	Notes     []NoteRequest          `json:"notes,omitempty" validate:"max=5000,dive"`
	Tasks     []TaskRequest          `json:"tasks,omitempty" validate:"max=5000,dive"`
	LeadValue float64                `json:"leadValue" validate:"gte=0"`
	CreatedAt time.Time              `json:"createdAt" validate:"required"`
}

type BatchScoreRequest struct {
	Leads []LeadSnapshotRequest `json:"leads" validate:"required,min=1,max=500,dive"`
}

// WebhookPayload is the hosted backend's database webhook body.
type WebhookPayload struct {
	Type      string         `json:"type" validate:"required,oneof=INSERT UPDATE DELETE"`
	Table     string         `json:"table" validate:"required"`
	Schema    string         `json:"schema,omitempty"`
	Record    map[string]any `json:"record"`
	OldRecord map[string]any `json:"old_record"`
}

// Response DTOs

type BatchScoreItem struct {
	Index int           `json:"index"`
	Score int           `json:"score"`
	Label scoring.Label `json:"label"`
	Color scoring.Color `json:"color"`
}

type BatchScoreResponse struct {
	Leads []BatchScoreItem `json:"leads"`
}

type ClassifyResponse struct {
	Score int           `json:"score"`
	Label scoring.Label `json:"label"`
	Color scoring.Color `json:"color"`
}

type RecalculateQueuedResponse struct {
	Status   string    `json:"status"`
	TenantID uuid.UUID `json:"tenantId"`
}

type WebhookResponse struct {
	Status string     `json:"status"`
	LeadID *uuid.UUID `json:"leadId,omitempty"`
}
