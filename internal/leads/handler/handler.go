package handler

import (
	"context"
	"net/http"
	"strconv"

	"omnichat_backend/internal/leads/scoring"
	"omnichat_backend/internal/leads/transport"
	"omnichat_backend/platform/apperr"
	"omnichat_backend/platform/httpkit"
	"omnichat_backend/platform/logger"
	"omnichat_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const msgInvalidRequest = "invalid request"

// Enqueuer hands recalculations to the background worker.
type Enqueuer interface {
	EnqueueLeadRecalculation(ctx context.Context, tenantID, leadID uuid.UUID) error
	EnqueueTenantRecalculation(ctx context.Context, tenantID uuid.UUID) error
}

type Handler struct {
	svc   *scoring.Service
	queue Enqueuer
	val   *validator.Validator
	log   *logger.Logger
}

// New creates the scoring handler. queue may be nil, in which case
// recalculations run inside the request.
func New(svc *scoring.Service, queue Enqueuer, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, queue: queue, val: val, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sc := rg.Group("/scoring")
	sc.POST("/preview", h.Preview)
	sc.POST("/batch", h.Batch)
	sc.GET("/classify", h.Classify)
	sc.GET("/weights", h.Weights)

	leads := rg.Group("/leads")
	leads.POST("/score/recalculate", h.RecalculateTenant)
	leads.GET("/:id/score", h.GetScore)
	leads.POST("/:id/score", h.RecalculateLead)
}

func (h *Handler) Preview(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.LeadSnapshotRequest
	if !httpkit.BindAndValidate(c, h.val, &req) {
		return
	}

	httpkit.OK(c, h.svc.Preview(req.ToDomain(id.TenantID())))
}

func (h *Handler) Batch(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.BatchScoreRequest
	if !httpkit.BindAndValidate(c, h.val, &req) {
		return
	}

	results := lo.Map(req.Leads, func(l transport.LeadSnapshotRequest, _ int) scoring.Result {
		return h.svc.Preview(l.ToDomain(id.TenantID()))
	})
	httpkit.OK(c, transport.ToBatchResponse(results))
}

func (h *Handler) Classify(c *gin.Context) {
	score, err := strconv.Atoi(c.Query("score"))
	if err != nil || score < 0 || score > 100 {
		httpkit.Error(c, http.StatusBadRequest, "score must be an integer between 0 and 100", nil)
		return
	}

	label, color := scoring.Classify(score)
	httpkit.OK(c, transport.ClassifyResponse{Score: score, Label: label, Color: color})
}

func (h *Handler) Weights(c *gin.Context) {
	httpkit.OK(c, h.svc.Scorer().Weights())
}

func (h *Handler) GetScore(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	res, err := h.svc.Get(c.Request.Context(), leadID, id.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}

func (h *Handler) RecalculateLead(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	res, err := h.svc.Recalculate(c.Request.Context(), leadID, id.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}

func (h *Handler) RecalculateTenant(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	ctx := c.Request.Context()
	h.log.WithContext(ctx).Info("tenant rescore requested", "tenantId", id.TenantID(), "userId", id.UserID(), "queued", h.queue != nil)

	if h.queue != nil {
		if err := h.queue.EnqueueTenantRecalculation(ctx, id.TenantID()); err != nil {
			httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "recalculation queue unavailable", err))
			return
		}
		httpkit.Accepted(c, transport.RecalculateQueuedResponse{Status: "queued", TenantID: id.TenantID()})
		return
	}

	summary, err := h.svc.RecalculateTenant(ctx, id.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}
