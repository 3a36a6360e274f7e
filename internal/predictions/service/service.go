// Package service implements prediction lead updates and their promotion to orders.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"callcenter_backend/internal/access"
	orderdomain "callcenter_backend/internal/orders/domain"
	orderservice "callcenter_backend/internal/orders/service"
	"callcenter_backend/internal/predictions/domain"
	"callcenter_backend/internal/predictions/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the transactional surface for lead updates. It shares the
// transaction with the order engine so promotion commits with the lead.
type Store interface {
	orderservice.Store
	LockLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error)
	UpdateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	LockBySourceLead(ctx context.Context, sourceType orderdomain.SourceType, leadID uuid.UUID) (orderdomain.Order, error)
}

// Repository opens lead transactions and serves the lead read model.
type Repository interface {
	InTx(ctx context.Context, fn func(store Store) error) error
	GetLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error)
	GetPromotedOrder(ctx context.Context, leadID uuid.UUID) (orderdomain.Order, error)
}

// OrderEffects runs the post-commit work of an order status write.
type OrderEffects interface {
	AfterCommit(ctx context.Context, result orderservice.Committed) []string
}

// PhoneNormalizer formats customer phone numbers.
type PhoneNormalizer interface {
	NormalizeE164(input string) string
}

// Service updates prediction leads.
type Service struct {
	repo    Repository
	effects OrderEffects
	phone   PhoneNormalizer
	log     *logger.Logger
}

// New creates a new predictions service.
func New(repo Repository, effects OrderEffects, phone PhoneNormalizer, log *logger.Logger) *Service {
	return &Service{repo: repo, effects: effects, phone: phone, log: log}
}

// Promotion is the order-side outcome of a lead update.
type Promotion struct {
	Committed orderservice.Committed
	Created   bool
	Changed   bool
}

// Update applies field and status changes to a lead. Setting call_again or
// confirmed promotes the lead inside the same transaction.
func (s *Service) Update(ctx context.Context, actor access.Actor, leadID uuid.UUID, req transport.UpdateLeadRequest) (transport.UpdateLeadResponse, error) {
	var newStatus *domain.Status
	if req.Status != nil {
		status, ok := domain.ParseStatus(*req.Status)
		if !ok {
			return transport.UpdateLeadResponse{}, apperr.Validation("unknown lead status")
		}
		newStatus = &status
	}
	var price *decimal.Decimal
	if req.UnitPrice != nil {
		p, err := decimal.NewFromString(strings.TrimSpace(*req.UnitPrice))
		if err != nil || p.IsNegative() {
			return transport.UpdateLeadResponse{}, apperr.Validation("unitPrice must be a non-negative amount")
		}
		p = p.Round(2)
		price = &p
	}

	var (
		lead      domain.Lead
		promotion Promotion
		linked    *orderdomain.Order
	)
	err := s.repo.InTx(ctx, func(store Store) error {
		var err error
		lead, err = store.LockLead(ctx, leadID)
		if errors.Is(err, domain.ErrLeadNotFound) {
			return apperr.NotFound("prediction lead not found")
		}
		if err != nil {
			return err
		}
		if err := canWorkLead(actor, lead); err != nil {
			return err
		}

		existing, err := store.LockBySourceLead(ctx, orderdomain.SourcePredictionLead, lead.ID)
		switch {
		case errors.Is(err, orderdomain.ErrOrderNotFound):
		case err != nil:
			return err
		default:
			linked = &existing
		}

		s.applyFields(&lead, req, price)
		if newStatus != nil {
			if _, promotes := domain.PromotionTarget(*newStatus); linked != nil && !promotes {
				return apperr.Conflict("lead was already promoted to order " + linked.Code)
			}
			lead.Status = *newStatus
		}

		lead, err = store.UpdateLead(ctx, lead)
		if err != nil {
			return err
		}

		if newStatus == nil {
			return nil
		}
		promotion, err = Promote(ctx, store, lead, linked, actor)
		return err
	})
	if err != nil {
		return transport.UpdateLeadResponse{}, db.NormalizeError("predictions.update", err)
	}

	resp := transport.UpdateLeadResponse{OrderCreated: promotion.Created}
	order := linked
	if promotion.Changed {
		order = &promotion.Committed.Order
		resp.Warnings = s.effects.AfterCommit(ctx, promotion.Committed)
		s.log.Info("prediction lead promoted", "leadId", lead.ID, "orderId", order.ID, "created", promotion.Created, "status", order.Status)
	}
	resp.Lead = toLeadResponse(lead, order)
	if order != nil {
		o := orderservice.ToOrderResponse(*order)
		resp.Order = &o
	}
	return resp, nil
}

// Promote creates or updates the order for lead. linked is the order already
// promoted from the lead, locked by the caller, or nil.
func Promote(ctx context.Context, store Store, lead domain.Lead, linked *orderdomain.Order, actor access.Actor) (Promotion, error) {
	target, ok := domain.PromotionTarget(lead.Status)
	if !ok {
		return Promotion{}, nil
	}

	if linked == nil {
		committed, err := orderservice.Place(ctx, store, lead.NewOrder(target), access.SystemActor(domain.PromotionActorName))
		if err != nil {
			return Promotion{}, err
		}
		return Promotion{Committed: committed, Created: true, Changed: true}, nil
	}

	if linked.Status == target {
		return Promotion{}, nil
	}
	committed, err := orderservice.CommitTransition(ctx, store, *linked, target, actor)
	if err != nil {
		return Promotion{}, err
	}
	return Promotion{Committed: committed, Changed: true}, nil
}

// GetByID returns a lead with the status of its promoted order, if any.
func (s *Service) GetByID(ctx context.Context, leadID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if errors.Is(err, domain.ErrLeadNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("prediction lead not found")
	}
	if err != nil {
		return transport.LeadResponse{}, db.NormalizeError("predictions.get", err)
	}

	order, err := s.repo.GetPromotedOrder(ctx, leadID)
	switch {
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		return toLeadResponse(lead, nil), nil
	case err != nil:
		return transport.LeadResponse{}, db.NormalizeError("predictions.get", err)
	}
	return toLeadResponse(lead, &order), nil
}

// canWorkLead lets admins and managers edit any lead and agents only leads assigned to them.
func canWorkLead(actor access.Actor, lead domain.Lead) error {
	if access.IsAdminOrManager(actor.Roles) {
		return nil
	}
	if !access.IsAgent(actor.Roles) {
		return apperr.Forbidden("agent, admin or manager role required")
	}
	if lead.Assignment.AgentID == nil || *lead.Assignment.AgentID != actor.ID {
		return apperr.Forbidden("this lead is not assigned to you")
	}
	return nil
}

func (s *Service) applyFields(lead *domain.Lead, req transport.UpdateLeadRequest, price *decimal.Decimal) {
	if req.CustomerName != nil {
		lead.Customer.Name = strings.TrimSpace(*req.CustomerName)
	}
	if req.CustomerPhone != nil {
		lead.Customer.Phone = s.phone.NormalizeE164(*req.CustomerPhone)
	}
	if req.CustomerCity != nil {
		lead.Customer.City = strings.TrimSpace(*req.CustomerCity)
	}
	if req.CustomerAddress != nil {
		lead.Customer.Address = strings.TrimSpace(*req.CustomerAddress)
	}
	if req.Notes != nil {
		lead.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Quantity != nil {
		lead.Quantity = *req.Quantity
	}
	if price != nil {
		lead.UnitPrice = *price
	}
}

func toLeadResponse(l domain.Lead, order *orderdomain.Order) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:              l.ID,
		ListID:          l.ListID,
		CustomerName:    l.Customer.Name,
		CustomerPhone:   l.Customer.Phone,
		CustomerCity:    l.Customer.City,
		CustomerAddress: l.Customer.Address,
		ProductID:       l.ProductID,
		ProductName:     l.ProductName,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice.StringFixed(2),
		Status:          string(l.Status),
		Notes:           l.Notes,
		AgentID:         l.Assignment.AgentID,
		AgentName:       l.Assignment.AgentName,
		UpdatedAt:       l.UpdatedAt.Format(time.RFC3339),
	}
	if order != nil {
		id, code, status := order.ID, order.Code, string(order.Status)
		resp.OrderID = &id
		resp.OrderCode = &code
		resp.OrderStatus = &status
	}
	return resp
}
