// Package inventory provides the stock ledger bounded context module.
package inventory

import (
	"callcenter_backend/internal/adapters/storage"
	apphttp "callcenter_backend/internal/http"
	"callcenter_backend/internal/inventory/handler"
	"callcenter_backend/internal/inventory/repository"
	"callcenter_backend/internal/inventory/service"
	"callcenter_backend/platform/validator"
)

// Module is the inventory bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the inventory module. invoices may be nil when MinIO is not configured.
func NewModule(repo *repository.Repository, notifier *service.Notifier, invoices *storage.MinIOService, invoiceBucket string, val *validator.Validator) *Module {
	svc := service.New(repo, notifier, notifier.Logger())
	if invoices != nil {
		svc.SetInvoiceStorage(invoices, invoiceBucket)
	}
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "inventory"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts inventory routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/inventory"))
}

var _ apphttp.Module = (*Module)(nil)
