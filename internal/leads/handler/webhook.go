package handler

import (
	"net/http"

	"omnichat_backend/internal/leads/transport"
	"omnichat_backend/platform/apperr"
	"omnichat_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// scoredTables are the hosted tables whose rows feed the score.
var scoredTables = map[string]bool{
	"leads":                true,
	"lead_notes":           true,
	"lead_tasks":           true,
	"lead_timeline_events": true,
}

// RegisterWebhookRoutes mounts the database webhook. The group must already
// carry the webhook secret check.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.LeadChanged)
}

// LeadChanged schedules a recalculation for the lead a changed row belongs to.
// Deletes, unrelated tables and lead updates that leave every scoring input
// untouched, such as score writes, are acknowledged and ignored.
func (h *Handler) LeadChanged(c *gin.Context) {
	var payload transport.WebhookPayload
	if !httpkit.BindAndValidate(c, h.val, &payload) {
		return
	}

	if payload.Type == "DELETE" || !scoredTables[payload.Table] {
		httpkit.OK(c, transport.WebhookResponse{Status: "ignored"})
		return
	}

	if !payload.ScoringInputsChanged() {
		httpkit.OK(c, transport.WebhookResponse{Status: "ignored"})
		return
	}

	leadID, tenantID, ok := payload.LeadRef()
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "record is missing lead or organization id", nil)
		return
	}

	ctx := c.Request.Context()
	if h.queue != nil {
		if err := h.queue.EnqueueLeadRecalculation(ctx, tenantID, leadID); err != nil {
			h.log.WithContext(ctx).Error("failed to enqueue lead recalculation", "leadId", leadID, "error", err)
			httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "recalculation queue unavailable", err))
			return
		}
		httpkit.Accepted(c, transport.WebhookResponse{Status: "queued", LeadID: &leadID})
		return
	}

	if _, err := h.svc.Recalculate(ctx, leadID, tenantID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			httpkit.OK(c, transport.WebhookResponse{Status: "ignored"})
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, transport.WebhookResponse{Status: "recalculated", LeadID: &leadID})
}
