package handler

import (
	"net/http"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/inventory/service"
	"callcenter_backend/internal/inventory/transport"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for product stock.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new inventory handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers inventory routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/products/:id", h.GetProduct)
	rg.GET("/products/:id/movements", h.ListMovements)
	rg.GET("/products/:id/ledger-check", h.CheckLedger)
	rg.POST("/products/:id/restock", h.Restock)
	rg.POST("/products/:id/adjust", h.Adjust)
	rg.POST("/products/:id/invoices/presign", h.PresignInvoice)
}

// GetProduct returns a product's stock level.
// GET /api/v1/inventory/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetProduct(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMovements returns the product's ledger, newest first.
// GET /api/v1/inventory/products/:id/movements
func (h *Handler) ListMovements(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ListMovementsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ListMovements(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) CheckLedger(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.CheckLedger(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Restock books received units.
// POST /api/v1/inventory/products/:id/restock
func (h *Handler) Restock(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.RestockRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Restock(c.Request.Context(), access.FromPrincipal(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Adjust sets the stock to a counted quantity.
// POST /api/v1/inventory/products/:id/adjust
func (h *Handler) Adjust(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.AdjustRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Adjust(c.Request.Context(), access.FromPrincipal(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PresignInvoice issues an upload URL for a supplier invoice.
// POST /api/v1/inventory/products/:id/invoices/presign
func (h *Handler) PresignInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.InvoiceUploadRequest
	if !h.bind(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.PresignInvoiceUpload(c.Request.Context(), access.FromPrincipal(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
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
