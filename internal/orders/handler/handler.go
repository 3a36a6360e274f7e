package handler

import (
	"net/http"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/orders/service"
	"callcenter_backend/internal/orders/transport"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new orders handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers order routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.GET("/:id/history", h.ListHistory)
	rg.GET("/:id/allowed-statuses", h.AllowedStatuses)
}

// Create enters a manual order.
// POST /api/v1/orders
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateOrderRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), access.FromPrincipal(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GetByID retrieves an order.
// GET /api/v1/orders/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Update edits order details.
// PATCH /api/v1/orders/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateOrderRequest
	if !h.bind(c, &req) {
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

// UpdateStatus runs a status transition.
// PATCH /api/v1/orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), access.FromPrincipal(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListHistory returns the order's status history.
// GET /api/v1/orders/:id/history
func (h *Handler) ListHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListHistory(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) AllowedStatuses(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.AllowedStatuses(c.Request.Context(), access.FromPrincipal(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
