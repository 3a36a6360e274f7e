package handler

import (
	"context"
	"net/http"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/users/service"
	"callcenter_backend/internal/users/transport"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAdminRoutes registers account administration routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.PUT("/:id/roles", h.SetRoles)
	rg.POST("/:id/suspend", h.Suspend)
	rg.POST("/:id/unsuspend", h.Unsuspend)
	rg.DELETE("/:id", h.Delete)
}

// POST /api/v1/admin/users
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateUserRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GET /api/v1/admin/users
func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	result, err := h.svc.List(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListAgents returns assignable agents.
// GET /api/v1/agents
func (h *Handler) ListAgents(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	result, err := h.svc.ListAgents(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PUT /api/v1/admin/users/:id/roles
func (h *Handler) SetRoles(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.SetRolesRequest
	if !h.bind(c, &req) {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.SetRoles(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// POST /api/v1/admin/users/:id/suspend
func (h *Handler) Suspend(c *gin.Context) {
	h.userAction(c, h.svc.Suspend, "user suspended")
}

// POST /api/v1/admin/users/:id/unsuspend
func (h *Handler) Unsuspend(c *gin.Context) {
	h.userAction(c, h.svc.Unsuspend, "user reinstated")
}

// DELETE /api/v1/admin/users/:id
func (h *Handler) Delete(c *gin.Context) {
	h.userAction(c, h.svc.Delete, "user deleted")
}

func (h *Handler) userAction(c *gin.Context, action func(ctx context.Context, actor access.Actor, id uuid.UUID) error, message string) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, action(c.Request.Context(), actor, id)) {
		return
	}
	httpkit.OK(c, gin.H{"message": message})
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

func actorFrom(c *gin.Context) (access.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return access.Actor{}, false
	}
	return access.FromPrincipal(identity), true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
