// Package events defines the domain events modules exchange over the bus.
// Infrastructure (Bus, Handler) lives in platform/events.
package events

import (
	"omnichat_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Lead Scoring Events
// =============================================================================

// LeadScored is published after a single-lead recalculation.
type LeadScored struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	TenantID      uuid.UUID `json:"tenantId"`
	Score         int       `json:"score"`
	Label         string    `json:"label"`
	PreviousScore *int      `json:"previousScore,omitempty"`
	Version       string    `json:"version"`
	Persisted     bool      `json:"persisted"`
}

func (e LeadScored) EventName() string { return "leads.score.scored" }

// LeadBecameHot is published when a lead's label moves into Hot from any other band.
type LeadBecameHot struct {
	BaseEvent
	LeadID        uuid.UUID          `json:"leadId"`
	TenantID      uuid.UUID          `json:"tenantId"`
	LeadName      string             `json:"leadName"`
	Score         int                `json:"score"`
	PreviousLabel string             `json:"previousLabel,omitempty"`
	Factors       map[string]float64 `json:"factors,omitempty"`
}

func (e LeadBecameHot) EventName() string { return "leads.score.became_hot" }
