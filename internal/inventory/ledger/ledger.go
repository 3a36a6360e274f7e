// Package ledger implements stock mutations. Every mutation locks the product
// row, rewrites its stock and appends exactly one movement row, all through a
// Store bound to the caller's transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"callcenter_backend/internal/access"
	"callcenter_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a ledger row.
type MovementType string

const (
	MovementOrderDeduction MovementType = "order_deduction"
	MovementRestock        MovementType = "restock"
	MovementManualAdjust   MovementType = "manual_adjust"
)

// ErrProductNotFound is returned by a Store when the product row does not exist.
var ErrProductNotFound = errors.New("product not found")

// Product is the stock-bearing row.
type Product struct {
	ID                uuid.UUID
	Name              string
	SKU               *string
	Price             decimal.Decimal
	Stock             int
	LowStockThreshold int
	UpdatedAt         time.Time
}

// Movement is one append-only ledger row.
type Movement struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	Change         int
	PreviousStock  int
	NewStock       int
	Type           MovementType
	OrderID        *uuid.UUID
	Note           string
	SupplierName   *string
	InvoiceNumber  *string
	InvoiceFileKey *string
	CreatedBy      *uuid.UUID
	CreatedByName  string
	CreatedAt      time.Time
}

// Store is the transactional surface used by ledger operations.
// Implementations must run every call in the same transaction.
type Store interface {
	// LockProduct reads the product row with an exclusive row lock.
	LockProduct(ctx context.Context, productID uuid.UUID) (Product, error)
	SetStock(ctx context.Context, productID uuid.UUID, stock int) error
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
}

// Result describes the outcome of a ledger operation.
type Result struct {
	Product  Product
	Movement *Movement
	// Changed is false when an adjustment matched the current stock.
	Changed bool
	// CrossedLowStock is true when stock fell to or below the product's threshold
	// during this operation.
	CrossedLowStock bool
}

// DeductRequest removes stock, typically for an order entering confirmed.
type DeductRequest struct {
	ProductID uuid.UUID
	Quantity  int
	OrderID   *uuid.UUID
	Note      string
	Actor     access.Actor
}

// RestockRequest adds received stock.
type RestockRequest struct {
	ProductID      uuid.UUID
	Quantity       int
	Note           string
	SupplierName   *string
	InvoiceNumber  *string
	InvoiceFileKey *string
	Actor          access.Actor
}

// AdjustRequest sets stock to an absolute counted value.
type AdjustRequest struct {
	ProductID   uuid.UUID
	NewQuantity int
	Note        string
	Actor       access.Actor
}

// Deduct removes req.Quantity units. It fails with an insufficient stock error,
// and writes nothing, when the product holds fewer units than requested.
func Deduct(ctx context.Context, store Store, req DeductRequest) (Result, error) {
	if req.Quantity <= 0 {
		return Result{}, apperr.Validation("quantity must be positive")
	}

	product, err := lock(ctx, store, req.ProductID)
	if err != nil {
		return Result{}, err
	}
	if product.Stock < req.Quantity {
		return Result{}, apperr.InsufficientStock(product.Stock, req.Quantity)
	}

	return apply(ctx, store, product, Movement{
		ProductID: product.ID,
		Change:    -req.Quantity,
		Type:      MovementOrderDeduction,
		OrderID:   req.OrderID,
		Note:      strings.TrimSpace(req.Note),
	}, req.Actor)
}

// Restock adds req.Quantity units and records the supplier and invoice metadata.
func Restock(ctx context.Context, store Store, req RestockRequest) (Result, error) {
	if req.Quantity <= 0 {
		return Result{}, apperr.Validation("quantity must be positive")
	}

	product, err := lock(ctx, store, req.ProductID)
	if err != nil {
		return Result{}, err
	}

	return apply(ctx, store, product, Movement{
		ProductID:      product.ID,
		Change:         req.Quantity,
		Type:           MovementRestock,
		Note:           strings.TrimSpace(req.Note),
		SupplierName:   trimmed(req.SupplierName),
		InvoiceNumber:  trimmed(req.InvoiceNumber),
		InvoiceFileKey: trimmed(req.InvoiceFileKey),
	}, req.Actor)
}

// Adjust sets stock to req.NewQuantity. When the value already matches, nothing
// is written and Result.Changed is false.
func Adjust(ctx context.Context, store Store, req AdjustRequest) (Result, error) {
	if req.NewQuantity < 0 {
		return Result{}, apperr.Validation("stock quantity cannot be negative")
	}

	product, err := lock(ctx, store, req.ProductID)
	if err != nil {
		return Result{}, err
	}
	if product.Stock == req.NewQuantity {
		return Result{Product: product}, nil
	}

	return apply(ctx, store, product, Movement{
		ProductID: product.ID,
		Change:    req.NewQuantity - product.Stock,
		Type:      MovementManualAdjust,
		Note:      strings.TrimSpace(req.Note),
	}, req.Actor)
}

// Replay folds movements, oldest first, and returns the resulting stock.
// It fails when a row's previous stock does not continue the running total.
func Replay(movements []Movement) (int, error) {
	stock := 0
	for i, m := range movements {
		if m.PreviousStock != stock {
			return stock, fmt.Errorf("movement %d (%s): previous stock %d, expected %d", i, m.ID, m.PreviousStock, stock)
		}
		if m.NewStock != m.PreviousStock+m.Change {
			return stock, fmt.Errorf("movement %d (%s): %d%+d != %d", i, m.ID, m.PreviousStock, m.Change, m.NewStock)
		}
		stock = m.NewStock
	}
	return stock, nil
}

func lock(ctx context.Context, store Store, productID uuid.UUID) (Product, error) {
	product, err := store.LockProduct(ctx, productID)
	if errors.Is(err, ErrProductNotFound) {
		return Product{}, apperr.NotFound("product not found")
	}
	return product, err
}

func apply(ctx context.Context, store Store, product Product, m Movement, actor access.Actor) (Result, error) {
	m.PreviousStock = product.Stock
	m.NewStock = product.Stock + m.Change
	if m.NewStock < 0 {
		return Result{}, apperr.InsufficientStock(product.Stock, -m.Change)
	}
	m.CreatedBy = actor.UserID()
	m.CreatedByName = actor.DisplayName()

	if err := store.SetStock(ctx, product.ID, m.NewStock); err != nil {
		return Result{}, err
	}
	saved, err := store.InsertMovement(ctx, m)
	if err != nil {
		return Result{}, err
	}

	crossed := product.LowStockThreshold > 0 &&
		m.PreviousStock > product.LowStockThreshold &&
		m.NewStock <= product.LowStockThreshold

	product.Stock = m.NewStock
	return Result{Product: product, Movement: &saved, Changed: true, CrossedLowStock: crossed}, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
