// Package orderstest provides an in-memory order store with the same
// transactional contract as the PostgreSQL repository.
package orderstest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/internal/inventory/ledger/ledgertest"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/internal/orders/service"

	"github.com/google/uuid"
)

// Store keeps orders, history and stock in memory.
type Store struct {
	*ledgertest.Store
	Orders  map[uuid.UUID]domain.Order
	History []domain.HistoryEntry
	// FailHistory, when set, is returned by InsertHistory.
	FailHistory error

	seq int
	mu  sync.Mutex
}

// New creates an empty store.
func New() *Store {
	return &Store{Store: ledgertest.New(), Orders: make(map[uuid.UUID]domain.Order)}
}

// AddOrder inserts an order as-is, without a history row.
func (s *Store) AddOrder(o domain.Order) domain.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Code == "" {
		s.seq++
		o.Code = fmt.Sprintf("ORD-%06d", s.seq)
	}
	if o.SourceType == "" {
		o.SourceType = domain.SourceManual
	}
	if o.Quantity == 0 {
		o.Quantity = 1
	}
	s.Orders[o.ID] = o
	return o
}

func (s *Store) LockOrder(_ context.Context, orderID uuid.UUID) (domain.Order, error) {
	o, ok := s.Orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *Store) LockBySourceLead(_ context.Context, sourceType domain.SourceType, leadID uuid.UUID) (domain.Order, error) {
	for _, o := range s.Orders {
		if o.SourceType == sourceType && o.SourceLeadID != nil && *o.SourceLeadID == leadID {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (s *Store) InsertOrder(_ context.Context, o domain.Order) (domain.Order, error) {
	if o.SourceLeadID != nil {
		for _, existing := range s.Orders {
			if existing.SourceType == o.SourceType && existing.SourceLeadID != nil && *existing.SourceLeadID == *o.SourceLeadID {
				return domain.Order{}, fmt.Errorf("duplicate key value violates unique constraint \"orders_source_lead_uidx\"")
			}
		}
	}
	o.ID = uuid.Nil
	o.Code = ""
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	return s.AddOrder(o), nil
}

func (s *Store) UpdateDetails(_ context.Context, o domain.Order) (domain.Order, error) {
	current, ok := s.Orders[o.ID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	current.ProductID = o.ProductID
	current.ProductName = o.ProductName
	current.Customer = o.Customer
	current.Quantity = o.Quantity
	current.UnitPrice = o.UnitPrice
	current.Notes = o.Notes
	current.UpdatedAt = time.Now()
	s.Orders[o.ID] = current
	return current, nil
}

func (s *Store) UpdateStatus(_ context.Context, orderID uuid.UUID, status domain.Status) (domain.Order, error) {
	o, ok := s.Orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	s.Orders[orderID] = o
	return o, nil
}

func (s *Store) InsertHistory(_ context.Context, e domain.HistoryEntry) (domain.HistoryEntry, error) {
	if s.FailHistory != nil {
		return domain.HistoryEntry{}, s.FailHistory
	}
	e.ID = uuid.New()
	e.ChangedAt = time.Now()
	s.History = append(s.History, e)
	return e, nil
}

func (s *Store) HasDeduction(_ context.Context, orderID uuid.UUID) (bool, error) {
	for _, m := range s.Movements {
		if m.Type == ledger.MovementOrderDeduction && m.OrderID != nil && *m.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

// HistoryFor returns the history of one order in write order.
func (s *Store) HistoryFor(orderID uuid.UUID) []domain.HistoryEntry {
	var out []domain.HistoryEntry
	for _, e := range s.History {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

// OrdersFromLead returns every order promoted from leadID.
func (s *Store) OrdersFromLead(leadID uuid.UUID) []domain.Order {
	var out []domain.Order
	for _, o := range s.Orders {
		if o.SourceLeadID != nil && *o.SourceLeadID == leadID {
			out = append(out, o)
		}
	}
	return out
}

// Snapshot captures orders, history and stock and returns a function restoring them.
func (s *Store) Snapshot() (restore func()) {
	restoreLedger := s.Store.Snapshot()
	orders := make(map[uuid.UUID]domain.Order, len(s.Orders))
	for id, o := range s.Orders {
		orders[id] = o
	}
	history := append([]domain.HistoryEntry(nil), s.History...)
	seq := s.seq
	return func() {
		restoreLedger()
		s.Orders = orders
		s.History = history
		s.seq = seq
	}
}

// InTx serializes fn like a row lock would and rolls back on error.
func (s *Store) InTx(_ context.Context, fn func(store service.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	restore := s.Snapshot()
	if err := fn(s); err != nil {
		restore()
		return err
	}
	return nil
}

// GetOrder returns an order.
func (s *Store) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return s.LockOrder(ctx, orderID)
}

// ListHistory returns an order's history.
func (s *Store) ListHistory(_ context.Context, orderID uuid.UUID) ([]domain.HistoryEntry, error) {
	return s.HistoryFor(orderID), nil
}

var (
	_ service.Store      = (*Store)(nil)
	_ service.Repository = (*Store)(nil)
)
