package handler

import (
	"net/http"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/predictions/service"
	"callcenter_backend/internal/predictions/transport"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for prediction leads.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new prediction lead handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers prediction lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
}

// GetByID retrieves a prediction lead with its promoted order status.
// GET /api/v1/prediction-leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Update patches a prediction lead and promotes it when its status calls for an order.
// PATCH /api/v1/prediction-leads/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), access.FromPrincipal(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
