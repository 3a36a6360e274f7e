package service

import (
	"context"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/internal/orders/domain"

	"github.com/google/uuid"
)

// Store is the transactional surface for order writes. It shares the
// transaction with the stock ledger so deductions commit with the status.
type Store interface {
	ledger.Store
	LockOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	UpdateDetails(ctx context.Context, order domain.Order) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.Status) (domain.Order, error)
	InsertHistory(ctx context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error)
	// HasDeduction reports whether an order_deduction movement was booked for the order.
	HasDeduction(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// Committed is the outcome of a status write.
type Committed struct {
	Order   domain.Order
	History domain.HistoryEntry
	Stock   *ledger.Result
}

// CommitTransition writes a transition the caller has already gated: the stock
// deduction when entering confirmed, then the history row, then the status.
func CommitTransition(ctx context.Context, store Store, order domain.Order, target domain.Status, actor access.Actor) (Committed, error) {
	var out Committed

	if domain.DeductsStock(order.Status, target) && order.ProductID != nil {
		res, err := deduct(ctx, store, order, actor)
		if err != nil {
			return Committed{}, err
		}
		out.Stock = &res
	}

	from := order.Status
	entry, err := store.InsertHistory(ctx, domain.HistoryEntry{
		OrderID:       order.ID,
		FromStatus:    &from,
		ToStatus:      target,
		ChangedBy:     actor.UserID(),
		ChangedByName: actor.DisplayName(),
	})
	if err != nil {
		return Committed{}, err
	}

	updated, err := store.UpdateStatus(ctx, order.ID, target)
	if err != nil {
		return Committed{}, err
	}

	out.Order = updated
	out.History = entry
	return out, nil
}

// Place inserts a new order and its creation history row. An order created
// directly in confirmed books its stock like a transition into confirmed.
func Place(ctx context.Context, store Store, order domain.Order, actor access.Actor) (Committed, error) {
	if order.Status == "" {
		order.Status = domain.StatusPending
	}
	order.CreatedBy = actor.UserID()

	created, err := store.InsertOrder(ctx, order)
	if err != nil {
		return Committed{}, err
	}

	var out Committed
	if domain.DeductsStock("", created.Status) && created.ProductID != nil {
		res, err := deduct(ctx, store, created, actor)
		if err != nil {
			return Committed{}, err
		}
		out.Stock = &res
	}

	entry, err := store.InsertHistory(ctx, domain.HistoryEntry{
		OrderID:       created.ID,
		ToStatus:      created.Status,
		ChangedBy:     actor.UserID(),
		ChangedByName: actor.DisplayName(),
	})
	if err != nil {
		return Committed{}, err
	}

	out.Order = created
	out.History = entry
	return out, nil
}

func deduct(ctx context.Context, store Store, order domain.Order, actor access.Actor) (ledger.Result, error) {
	orderID := order.ID
	return ledger.Deduct(ctx, store, ledger.DeductRequest{
		ProductID: *order.ProductID,
		Quantity:  order.Quantity,
		OrderID:   &orderID,
		Note:      "order " + order.Code,
		Actor:     actor,
	})
}
