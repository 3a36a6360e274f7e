// Package ledgertest provides an in-memory ledger.Store for tests of packages
// that mutate stock inside their own transactions.
package ledgertest

import (
	"context"
	"time"

	"callcenter_backend/internal/inventory/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store keeps products and movements in memory. It is not safe for concurrent
// use; callers serialize access the way a row lock would.
type Store struct {
	Products  map[uuid.UUID]ledger.Product
	Movements []ledger.Movement
	// FailInsert, when set, is returned by InsertMovement.
	FailInsert error
}

// New creates an empty store.
func New() *Store {
	return &Store{Products: make(map[uuid.UUID]ledger.Product)}
}

// AddProduct inserts a product with the given opening stock and no ledger history.
func (s *Store) AddProduct(name string, stock, threshold int) ledger.Product {
	p := ledger.Product{
		ID:                uuid.New(),
		Name:              name,
		Price:             decimal.NewFromInt(10),
		Stock:             stock,
		LowStockThreshold: threshold,
		UpdatedAt:         time.Now(),
	}
	s.Products[p.ID] = p
	return p
}

func (s *Store) LockProduct(_ context.Context, productID uuid.UUID) (ledger.Product, error) {
	p, ok := s.Products[productID]
	if !ok {
		return ledger.Product{}, ledger.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) SetStock(_ context.Context, productID uuid.UUID, stock int) error {
	p, ok := s.Products[productID]
	if !ok {
		return ledger.ErrProductNotFound
	}
	p.Stock = stock
	p.UpdatedAt = time.Now()
	s.Products[productID] = p
	return nil
}

func (s *Store) InsertMovement(_ context.Context, m ledger.Movement) (ledger.Movement, error) {
	if s.FailInsert != nil {
		return ledger.Movement{}, s.FailInsert
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	s.Movements = append(s.Movements, m)
	return m, nil
}

// MovementsFor returns the movements of one product, oldest first.
func (s *Store) MovementsFor(productID uuid.UUID) []ledger.Movement {
	var out []ledger.Movement
	for _, m := range s.Movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// Snapshot captures the current state and returns a function restoring it.
func (s *Store) Snapshot() (restore func()) {
	products := make(map[uuid.UUID]ledger.Product, len(s.Products))
	for id, p := range s.Products {
		products[id] = p
	}
	movements := append([]ledger.Movement(nil), s.Movements...)
	return func() {
		s.Products = products
		s.Movements = movements
	}
}
