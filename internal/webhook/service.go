package webhook

import (
	"context"
	"errors"
	"strings"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/inventory/ledger"
	orderdomain "callcenter_backend/internal/orders/domain"
	orderservice "callcenter_backend/internal/orders/service"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/sanitize"

	"github.com/google/uuid"
)

// IntakeActorName is recorded on the initial history row of webhook orders.
const IntakeActorName = "System (Webhook)"

// IntakeStore is the transactional surface used to record a submission.
type IntakeStore interface {
	orderservice.Store
	InsertInboundLead(ctx context.Context, lead InboundLead) (InboundLead, error)
	RecountLeads(ctx context.Context, webhookID uuid.UUID) error
	ProductSnapshot(ctx context.Context, productID uuid.UUID) (ledger.Product, error)
}

// KeyStore manages webhook rows outside intake transactions.
type KeyStore interface {
	Create(ctx context.Context, w Webhook) (Webhook, error)
	GetByHash(ctx context.Context, keyHash string) (Webhook, error)
	List(ctx context.Context) ([]Webhook, error)
	Revoke(ctx context.Context, webhookID uuid.UUID) error
	InTx(ctx context.Context, fn func(store IntakeStore) error) error
}

// Deduper suppresses repeated submissions.
type Deduper interface {
	Claim(ctx context.Context, webhookID uuid.UUID, phone string) (*Receipt, error)
	Complete(ctx context.Context, webhookID uuid.UUID, phone string, receipt Receipt) error
	Release(ctx context.Context, webhookID uuid.UUID, phone string) error
}

// PhoneNormalizer formats customer phone numbers.
type PhoneNormalizer interface {
	NormalizeE164(input string) string
}

// LeadSubmission is the payload posted by an external site.
type LeadSubmission struct {
	Name   string `json:"name" validate:"required,notblank,max=200"`
	Phone  string `json:"phone" validate:"required,notblank,max=50"`
	Source string `json:"source" validate:"max=100"`
}

// LeadSubmissionResponse identifies the created lead and order.
type LeadSubmissionResponse struct {
	LeadID    uuid.UUID `json:"leadId"`
	OrderID   uuid.UUID `json:"orderId"`
	OrderCode string    `json:"orderCode"`
	Duplicate bool      `json:"duplicate"`
}

// Service handles webhook intake and key management.
type Service struct {
	repo   KeyStore
	dedupe Deduper
	phone  PhoneNormalizer
	log    *logger.Logger
}

// NewService creates a new webhook service.
func NewService(repo KeyStore, dedupe Deduper, phone PhoneNormalizer, log *logger.Logger) *Service {
	return &Service{repo: repo, dedupe: dedupe, phone: phone, log: log}
}

// SubmitLead records an inbound lead and its pending order in one transaction.
func (s *Service) SubmitLead(ctx context.Context, hook Webhook, sub LeadSubmission) (LeadSubmissionResponse, error) {
	name := sanitize.Text(sub.Name)
	phone := s.phone.NormalizeE164(sub.Phone)
	if name == "" || phone == "" {
		return LeadSubmissionResponse{}, apperr.Validation("name and phone are required")
	}

	prior, err := s.dedupe.Claim(ctx, hook.ID, phone)
	switch {
	case errors.Is(err, ErrSubmissionInFlight):
		return LeadSubmissionResponse{}, apperr.Conflict("an identical submission is being processed")
	case err != nil:
		// Intake keeps working when Redis is down.
		s.log.Warn("webhook dedupe unavailable", "webhookId", hook.ID, "error", err)
	case prior != nil:
		return LeadSubmissionResponse{LeadID: prior.LeadID, OrderID: prior.OrderID, OrderCode: prior.OrderCode, Duplicate: true}, nil
	}
	claimed := err == nil

	source := sanitize.Text(sub.Source)
	if source == "" {
		source = hook.DefaultSource
	}

	var (
		lead  InboundLead
		order orderdomain.Order
	)
	err = s.repo.InTx(ctx, func(store IntakeStore) error {
		webhookID := hook.ID
		var err error
		lead, err = store.InsertInboundLead(ctx, InboundLead{WebhookID: &webhookID, Name: name, Phone: phone, Source: source})
		if err != nil {
			return err
		}

		draft := orderdomain.Order{
			Customer:     orderdomain.Customer{Name: name, Phone: phone},
			Quantity:     1,
			Status:       orderdomain.StatusPending,
			SourceType:   orderdomain.SourceInboundLead,
			SourceLeadID: &lead.ID,
		}
		if hook.ProductID != nil {
			product, err := store.ProductSnapshot(ctx, *hook.ProductID)
			if err != nil && !errors.Is(err, ledger.ErrProductNotFound) {
				return err
			}
			if err == nil {
				draft.ProductID = &product.ID
				draft.ProductName = product.Name
				draft.UnitPrice = product.Price
			}
		}

		committed, err := orderservice.Place(ctx, store, draft, access.SystemActor(IntakeActorName))
		if err != nil {
			return err
		}
		order = committed.Order
		return store.RecountLeads(ctx, hook.ID)
	})
	if err != nil {
		if claimed {
			if rerr := s.dedupe.Release(ctx, hook.ID, phone); rerr != nil {
				s.log.Warn("webhook dedupe release failed", "webhookId", hook.ID, "error", rerr)
			}
		}
		return LeadSubmissionResponse{}, db.NormalizeError("webhook.submit", err)
	}

	receipt := Receipt{LeadID: lead.ID, OrderID: order.ID, OrderCode: order.Code}
	if claimed {
		if err := s.dedupe.Complete(ctx, hook.ID, phone, receipt); err != nil {
			s.log.Warn("webhook dedupe store failed", "webhookId", hook.ID, "error", err)
		}
	}
	s.log.Info("webhook lead received", "webhookId", hook.ID, "leadId", lead.ID, "orderId", order.ID)

	return LeadSubmissionResponse{LeadID: lead.ID, OrderID: order.ID, OrderCode: order.Code}, nil
}

// CreateWebhookRequest is the request body for creating a webhook.
type CreateWebhookRequest struct {
	Name          string     `json:"name" validate:"required,notblank,max=100"`
	ProductID     *uuid.UUID `json:"productId"`
	DefaultSource string     `json:"defaultSource" validate:"max=100"`
}

// WebhookResponse is returned when listing or creating webhooks.
type WebhookResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	KeyPrefix     string     `json:"keyPrefix"`
	ProductID     *uuid.UUID `json:"productId,omitempty"`
	DefaultSource string     `json:"defaultSource"`
	IsActive      bool       `json:"isActive"`
	TotalLeads    int        `json:"totalLeads"`
	CreatedAt     string     `json:"createdAt"`
}

// CreateWebhookResponse includes the plaintext key (shown only once).
type CreateWebhookResponse struct {
	WebhookResponse
	Key string `json:"key"`
}

// CreateWebhook issues a new API key.
func (s *Service) CreateWebhook(ctx context.Context, actor access.Actor, req CreateWebhookRequest) (CreateWebhookResponse, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return CreateWebhookResponse{}, err
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		return CreateWebhookResponse{}, apperr.Internal("failed to generate API key")
	}
	source := strings.TrimSpace(req.DefaultSource)
	if source == "" {
		source = "webhook"
	}

	hook, err := s.repo.Create(ctx, Webhook{
		Name:          strings.TrimSpace(req.Name),
		KeyHash:       hash,
		KeyPrefix:     prefix,
		ProductID:     req.ProductID,
		DefaultSource: source,
		CreatedBy:     actor.UserID(),
	})
	if err != nil {
		return CreateWebhookResponse{}, db.NormalizeError("webhook.create", err)
	}
	s.log.Info("webhook created", "webhookId", hook.ID, "by", actor.ID)

	return CreateWebhookResponse{WebhookResponse: toWebhookResponse(hook), Key: plaintext}, nil
}

// ListWebhooks returns all webhooks.
func (s *Service) ListWebhooks(ctx context.Context, actor access.Actor) ([]WebhookResponse, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return nil, err
	}
	hooks, err := s.repo.List(ctx)
	if err != nil {
		return nil, db.NormalizeError("webhook.list", err)
	}
	result := make([]WebhookResponse, len(hooks))
	for i, h := range hooks {
		result[i] = toWebhookResponse(h)
	}
	return result, nil
}

// RevokeWebhook deactivates a webhook key.
func (s *Service) RevokeWebhook(ctx context.Context, actor access.Actor, webhookID uuid.UUID) error {
	if err := access.RequireAdmin(actor); err != nil {
		return err
	}
	err := s.repo.Revoke(ctx, webhookID)
	if errors.Is(err, ErrWebhookNotFound) {
		return apperr.NotFound("webhook not found")
	}
	if err != nil {
		return db.NormalizeError("webhook.revoke", err)
	}
	return nil
}

func toWebhookResponse(w Webhook) WebhookResponse {
	return WebhookResponse{
		ID:            w.ID,
		Name:          w.Name,
		KeyPrefix:     w.KeyPrefix,
		ProductID:     w.ProductID,
		DefaultSource: w.DefaultSource,
		IsActive:      w.IsActive,
		TotalLeads:    w.TotalLeads,
		CreatedAt:     w.CreatedAt.Format(timeFormat),
	}
}
