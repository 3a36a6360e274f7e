package handler

import (
	"net/http"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/assignment/service"
	"callcenter_backend/internal/assignment/transport"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders", h.AssignOrders)
	rg.POST("/prediction-leads", h.AssignLeads)
	rg.POST("/balance", h.Balance)
}

// AssignOrders assigns orders to an agent.
// POST /api/v1/assignments/orders
func (h *Handler) AssignOrders(c *gin.Context) {
	var req transport.AssignOrdersRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.AssignOrders(c.Request.Context(), access.FromPrincipal(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AssignLeads assigns prediction leads to an agent.
// POST /api/v1/assignments/prediction-leads
func (h *Handler) AssignLeads(c *gin.Context) {
	var req transport.AssignLeadsRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.AssignLeads(c.Request.Context(), access.FromPrincipal(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Balance spreads work across several agents.
// POST /api/v1/assignments/balance
func (h *Handler) Balance(c *gin.Context) {
	var req transport.BalanceRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Balance(c.Request.Context(), access.FromPrincipal(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return false
	}
	return true
}
