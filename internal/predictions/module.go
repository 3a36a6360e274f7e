// Package predictions provides the prediction lead module.
package predictions

import (
	apphttp "callcenter_backend/internal/http"
	"callcenter_backend/internal/predictions/handler"
	"callcenter_backend/internal/predictions/repository"
	"callcenter_backend/internal/predictions/service"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/validator"
)

// Module is the prediction lead module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the prediction lead service onto the order engine's post-commit effects.
func NewModule(
	repo *repository.Repository,
	effects service.OrderEffects,
	phone service.PhoneNormalizer,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(repo, effects, phone, log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "predictions"
}

// RegisterRoutes mounts prediction lead routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/prediction-leads"))
}

var _ apphttp.Module = (*Module)(nil)
