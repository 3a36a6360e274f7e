// Package service implements the order status transition engine and the
// order read and edit operations around it.
package service

import (
	"context"
	"errors"
	"strings"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/internal/orders/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SyncWarning is returned to the caller when the linked inbound lead could not
// be updated. The order change itself has committed.
const SyncWarning = "linked inbound lead status could not be updated; a repair has been scheduled"

// Repository opens order transactions and serves read models.
type Repository interface {
	InTx(ctx context.Context, fn func(store Store) error) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]domain.HistoryEntry, error)
}

// StockObserver is told about ledger mutations after their transaction commits.
type StockObserver interface {
	Committed(ctx context.Context, res ledger.Result)
}

// LeadSynchronizer mirrors a committed order status onto its inbound lead.
type LeadSynchronizer interface {
	Sync(ctx context.Context, order domain.Order) error
}

// PhoneNormalizer formats customer phone numbers.
type PhoneNormalizer interface {
	NormalizeE164(input string) string
}

// Service is the status transition engine.
type Service struct {
	repo  Repository
	stock StockObserver
	sync  LeadSynchronizer
	phone PhoneNormalizer
	log   *logger.Logger
}

// New creates a new order service.
func New(repo Repository, stock StockObserver, sync LeadSynchronizer, phone PhoneNormalizer, log *logger.Logger) *Service {
	return &Service{repo: repo, stock: stock, sync: sync, phone: phone, log: log}
}

// UpdateStatus moves an order to the requested status. The order row is locked
// for the whole transaction; both gates run before anything is written.
func (s *Service) UpdateStatus(ctx context.Context, actor access.Actor, orderID uuid.UUID, req transport.UpdateStatusRequest) (transport.StatusChangeResponse, error) {
	target, ok := domain.ParseStatus(req.Status)
	if !ok {
		return transport.StatusChangeResponse{}, apperr.Validation("unknown status").
			WithDetails(map[string]interface{}{"validStatuses": domain.Strings(domain.AllStatuses())})
	}

	var (
		result  Committed
		changed bool
	)
	err := s.repo.InTx(ctx, func(store Store) error {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		if err := CheckRole(order, target, actor.Roles); err != nil {
			return err
		}
		if order.Status == target {
			result.Order = order
			return nil
		}
		if err := CheckCompleteness(order, target); err != nil {
			return err
		}

		result, err = CommitTransition(ctx, store, order, target, actor)
		changed = err == nil
		return err
	})
	if err != nil {
		return transport.StatusChangeResponse{}, db.NormalizeError("orders.update_status", err)
	}

	resp := transport.StatusChangeResponse{Order: toOrderResponse(result.Order), Changed: changed}
	if !changed {
		return resp, nil
	}

	history := toHistoryResponse(result.History)
	resp.History = &history
	if result.Stock != nil {
		resp.Stock = toStockChange(*result.Stock)
	}
	resp.Warnings = s.afterCommit(ctx, result)
	return resp, nil
}

// Create enters a manual order in pending. Agents creating an order are assigned to it.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreateOrderRequest) (transport.OrderResponse, error) {
	if !access.IsAgent(actor.Roles) && !access.IsAdminOrManager(actor.Roles) {
		return transport.OrderResponse{}, apperr.Forbidden("agent, admin or manager role required")
	}
	unitPrice, err := parsePrice(req.UnitPrice)
	if err != nil {
		return transport.OrderResponse{}, err
	}

	order := domain.Order{
		ProductID:   req.ProductID,
		ProductName: strings.TrimSpace(req.ProductName),
		Customer: domain.Customer{
			Name:    strings.TrimSpace(req.CustomerName),
			Phone:   s.phone.NormalizeE164(req.CustomerPhone),
			City:    strings.TrimSpace(req.CustomerCity),
			Address: strings.TrimSpace(req.CustomerAddress),
		},
		Quantity:   req.Quantity,
		Status:     domain.StatusPending,
		Notes:      strings.TrimSpace(req.Notes),
		SourceType: domain.SourceManual,
	}
	if access.IsAgent(actor.Roles) && !access.IsAdminOrManager(actor.Roles) {
		order.Assignment = selfAssignment(actor)
	}

	var result Committed
	err = s.repo.InTx(ctx, func(store Store) error {
		if err := applyProduct(ctx, store, &order, req.ProductID, unitPrice); err != nil {
			return err
		}
		if order.ProductID == nil && unitPrice != nil {
			order.UnitPrice = *unitPrice
		}
		var err error
		result, err = Place(ctx, store, order, actor)
		return err
	})
	if err != nil {
		return transport.OrderResponse{}, db.NormalizeError("orders.create", err)
	}

	s.log.Info("order created", "orderId", result.Order.ID, "code", result.Order.Code, "source", result.Order.SourceType)
	return toOrderResponse(result.Order), nil
}

// productLineFrozen reports whether stock was ever booked out for order.
// Cancelled, returned and trashed orders keep their deduction, so the
// current status alone does not decide it.
func productLineFrozen(ctx context.Context, store Store, order domain.Order) (bool, error) {
	if domain.StockDeducted(order.Status) {
		return true, nil
	}
	return store.HasDeduction(ctx, order.ID)
}

// Update edits customer details, notes and, before stock was booked out, the product line.
func (s *Service) Update(ctx context.Context, actor access.Actor, orderID uuid.UUID, req transport.UpdateOrderRequest) (transport.OrderResponse, error) {
	if !access.IsAgent(actor.Roles) && !access.IsWarehouse(actor.Roles) && !access.IsAdminOrManager(actor.Roles) {
		return transport.OrderResponse{}, apperr.Forbidden("you cannot edit orders")
	}
	unitPrice, err := parsePrice(req.UnitPrice)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	productLine := req.ProductID != nil || req.ProductName != nil || req.Quantity != nil || unitPrice != nil

	var updated domain.Order
	err = s.repo.InTx(ctx, func(store Store) error {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		if productLine {
			frozen, err := productLineFrozen(ctx, store, order)
			if err != nil {
				return err
			}
			if frozen {
				return apperr.Conflict("product, quantity and price cannot change after stock was booked out")
			}
		}

		if req.CustomerName != nil {
			order.Customer.Name = strings.TrimSpace(*req.CustomerName)
		}
		if req.CustomerPhone != nil {
			order.Customer.Phone = s.phone.NormalizeE164(*req.CustomerPhone)
		}
		if req.CustomerCity != nil {
			order.Customer.City = strings.TrimSpace(*req.CustomerCity)
		}
		if req.CustomerAddress != nil {
			order.Customer.Address = strings.TrimSpace(*req.CustomerAddress)
		}
		if req.Notes != nil {
			order.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.ProductName != nil {
			order.ProductName = strings.TrimSpace(*req.ProductName)
		}
		if req.Quantity != nil {
			order.Quantity = *req.Quantity
		}
		if req.ProductID != nil {
			if err := applyProduct(ctx, store, &order, req.ProductID, unitPrice); err != nil {
				return err
			}
		} else if unitPrice != nil {
			order.UnitPrice = *unitPrice
		}

		updated, err = store.UpdateDetails(ctx, order)
		return err
	})
	if err != nil {
		return transport.OrderResponse{}, db.NormalizeError("orders.update", err)
	}
	return toOrderResponse(updated), nil
}

// GetByID returns an order.
func (s *Service) GetByID(ctx context.Context, orderID uuid.UUID) (transport.OrderResponse, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return transport.OrderResponse{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return transport.OrderResponse{}, db.NormalizeError("orders.get", err)
	}
	return toOrderResponse(order), nil
}

// ListHistory returns an order's status changes, oldest first.
func (s *Service) ListHistory(ctx context.Context, orderID uuid.UUID) (transport.HistoryListResponse, error) {
	if _, err := s.GetByID(ctx, orderID); err != nil {
		return transport.HistoryListResponse{}, err
	}
	entries, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return transport.HistoryListResponse{}, db.NormalizeError("orders.list_history", err)
	}

	resp := transport.HistoryListResponse{Items: make([]transport.HistoryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, toHistoryResponse(e))
	}
	return resp, nil
}

// AllowedStatuses reports which statuses the actor may move the order to.
func (s *Service) AllowedStatuses(ctx context.Context, actor access.Actor, orderID uuid.UUID) (transport.AllowedStatusesResponse, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return transport.AllowedStatusesResponse{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return transport.AllowedStatusesResponse{}, db.NormalizeError("orders.allowed_statuses", err)
	}
	return transport.AllowedStatusesResponse{
		Current: string(order.Status),
		Allowed: domain.Strings(domain.AllowedTargets(order.Status, actor.Roles)),
	}, nil
}

// AfterCommit runs the post-commit effects of a status write and returns any
// warnings for the caller. Other modules that commit through this package call it too.
func (s *Service) AfterCommit(ctx context.Context, result Committed) []string {
	return s.afterCommit(ctx, result)
}

func (s *Service) afterCommit(ctx context.Context, result Committed) []string {
	if result.Stock != nil && s.stock != nil {
		s.stock.Committed(ctx, *result.Stock)
	}
	if s.sync == nil || result.Order.SourceType != domain.SourceInboundLead {
		return nil
	}
	if err := s.sync.Sync(ctx, result.Order); err != nil {
		return []string{SyncWarning}
	}
	return nil
}

func lockOrder(ctx context.Context, store Store, orderID uuid.UUID) (domain.Order, error) {
	order, err := store.LockOrder(ctx, orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, apperr.NotFound("order not found")
	}
	return order, err
}

// applyProduct links the order to productID, copying its name and, unless
// overridden, its price.
func applyProduct(ctx context.Context, store Store, order *domain.Order, productID *uuid.UUID, price *decimal.Decimal) error {
	if productID == nil {
		return nil
	}
	product, err := store.LockProduct(ctx, *productID)
	if errors.Is(err, ledger.ErrProductNotFound) {
		return apperr.NotFound("product not found")
	}
	if err != nil {
		return err
	}

	id := product.ID
	order.ProductID = &id
	order.ProductName = product.Name
	order.UnitPrice = product.Price
	if price != nil {
		order.UnitPrice = *price
	}
	return nil
}

func parsePrice(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	price, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil || price.IsNegative() {
		return nil, apperr.Validation("unitPrice must be a non-negative amount")
	}
	price = price.Round(2)
	return &price, nil
}

func selfAssignment(actor access.Actor) domain.Assignment {
	id := actor.ID
	name := actor.DisplayName()
	now := timeNow()
	return domain.Assignment{AgentID: &id, AgentName: &name, AssignedAt: &now, AssignedBy: &id}
}
