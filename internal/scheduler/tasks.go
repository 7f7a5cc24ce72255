package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskRecalculateLeadScore = "leads.score.recalculate"

const TaskRecalculateTenantScores = "leads.score.recalculate_tenant"

const TaskRecalculateAllScores = "leads.score.recalculate_all"

type RecalculateLeadScorePayload struct {
	TenantID string `json:"tenantId"`
	LeadID   string `json:"leadId"`
}

type RecalculateTenantScoresPayload struct {
	TenantID string `json:"tenantId"`
}

func NewRecalculateLeadScoreTask(tenantID, leadID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(RecalculateLeadScorePayload{TenantID: tenantID.String(), LeadID: leadID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecalculateLeadScore, data), nil
}

// ParseRecalculateLeadScorePayload decodes and validates the IDs of a lead task.
func ParseRecalculateLeadScorePayload(task *asynq.Task) (tenantID, leadID uuid.UUID, err error) {
	var payload RecalculateLeadScorePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if tenantID, err = uuid.Parse(payload.TenantID); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid tenantId: %w", err)
	}
	if leadID, err = uuid.Parse(payload.LeadID); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid leadId: %w", err)
	}
	return tenantID, leadID, nil
}

func NewRecalculateTenantScoresTask(tenantID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(RecalculateTenantScoresPayload{TenantID: tenantID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecalculateTenantScores, data), nil
}

func ParseRecalculateTenantScoresPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload RecalculateTenantScoresPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, err
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenantId: %w", err)
	}
	return tenantID, nil
}

func NewRecalculateAllScoresTask() *asynq.Task {
	return asynq.NewTask(TaskRecalculateAllScores, []byte("{}"))
}
