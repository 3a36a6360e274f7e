// Package users provides staff account administration.
package users

import (
	apphttp "callcenter_backend/internal/http"
	"callcenter_backend/internal/users/handler"
	"callcenter_backend/internal/users/repository"
	"callcenter_backend/internal/users/service"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/validator"
)

// Module is the users module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the users module.
func NewModule(repo *repository.Repository, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repo, log)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "users"
}

// RegisterRoutes mounts admin user routes and the agents directory.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/users"))
	ctx.Protected.GET("/agents", m.handler.ListAgents)
}

var _ apphttp.Module = (*Module)(nil)
