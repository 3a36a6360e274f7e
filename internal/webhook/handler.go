package webhook

import (
	"net/http"

	"callcenter_backend/internal/access"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errNoWebhookContext = "no webhook context"
	errInvalidRequest   = "invalid request body"
	errValidation       = "validation error"
	timeFormat          = "2006-01-02T15:04:05Z07:00"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// ---- Lead intake (public, API-key authenticated) ----

// HandleLeadSubmission processes an inbound lead.
// POST /api/v1/webhook/leads
// Authenticated via X-Webhook-API-Key header (set by middleware).
func (h *Handler) HandleLeadSubmission(c *gin.Context) {
	hook, ok := webhookFromContext(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, errNoWebhookContext, nil)
		return
	}

	var req LeadSubmission
	if !h.bindAndValidate(c, &req) {
		return
	}

	resp, err := h.service.SubmitLead(c.Request.Context(), hook, req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// ---- Admin webhook management (JWT authenticated) ----

// HandleCreateWebhook creates a new webhook API key.
// POST /api/v1/admin/webhooks
func (h *Handler) HandleCreateWebhook(c *gin.Context) {
	var req CreateWebhookRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	resp, err := h.service.CreateWebhook(c.Request.Context(), access.FromPrincipal(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// HandleListWebhooks lists all webhooks.
// GET /api/v1/admin/webhooks
func (h *Handler) HandleListWebhooks(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.service.ListWebhooks(c.Request.Context(), access.FromPrincipal(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// HandleRevokeWebhook deactivates a webhook key.
// DELETE /api/v1/admin/webhooks/:webhookId
func (h *Handler) HandleRevokeWebhook(c *gin.Context) {
	webhookID, err := uuid.Parse(c.Param("webhookId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook ID", nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.service.RevokeWebhook(c.Request.Context(), access.FromPrincipal(identity), webhookID); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "webhook revoked"})
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
