// Package orders provides the orders bounded context module.
package orders

import (
	apphttp "callcenter_backend/internal/http"
	"callcenter_backend/internal/orders/handler"
	"callcenter_backend/internal/orders/repository"
	"callcenter_backend/internal/orders/service"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/validator"
)

// Module is the orders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the orders module with all its dependencies.
func NewModule(
	repo *repository.Repository,
	stock service.StockObserver,
	sync service.LeadSynchronizer,
	phone service.PhoneNormalizer,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	svc := service.New(repo, stock, sync, phone, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/orders"))
}

var _ apphttp.Module = (*Module)(nil)
