// Package webhook provides the inbound lead intake module.
// This file defines the module that encapsulates all webhook setup and route registration.
package webhook

import (
	apphttp "callcenter_backend/internal/http"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
	limiter *httpkit.IPRateLimiter
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	dedupe Deduper,
	phone PhoneNormalizer,
	ratePerMinute int,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := NewRepository(pool)
	service := NewService(repo, dedupe, phone, log)

	return &Module{
		handler: NewHandler(service, val),
		repo:    repo,
		limiter: httpkit.NewPerMinuteLimiter(ratePerMinute, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public intake (API key auth, no JWT)
	intake := ctx.V1.Group("/webhook")
	intake.Use(m.limiter.RateLimit(), APIKeyAuthMiddleware(m.repo))
	intake.POST("/leads", m.handler.HandleLeadSubmission)

	// Admin key management (JWT auth + admin role)
	admin := ctx.Admin.Group("/webhooks")
	admin.POST("", m.handler.HandleCreateWebhook)
	admin.GET("", m.handler.HandleListWebhooks)
	admin.DELETE("/:webhookId", m.handler.HandleRevokeWebhook)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
