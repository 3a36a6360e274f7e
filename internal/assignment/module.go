// Package assignment provides the work assignment module.
package assignment

import (
	"callcenter_backend/internal/assignment/handler"
	"callcenter_backend/internal/assignment/repository"
	"callcenter_backend/internal/assignment/service"
	apphttp "callcenter_backend/internal/http"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(repo *repository.Repository, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: handler.New(service.New(repo, log), val)}
}

func (m *Module) Name() string {
	return "assignment"
}

// RegisterRoutes mounts assignment routes for admins and managers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/assignments")
	group.Use(httpkit.RequireAnyRole("admin", "manager"))
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
