// Package repository provides PostgreSQL access for products and stock movements.
package repository

import (
	"context"
	"errors"

	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, name, sku, price, stock_quantity, low_stock_threshold, updated_at`

const movementColumns = `id, product_id, change_amount, previous_stock, new_stock, movement_type, order_id, note,
	supplier_name, invoice_number, invoice_file_key, created_by, created_by_name, created_at`

const lockProductQuery = `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

// Repository reads inventory state and opens ledger transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new inventory repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn with a ledger store bound to a new transaction.
func (r *Repository) InTx(ctx context.Context, fn func(store ledger.Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewTxStore(tx))
	})
}

// GetProduct returns a product without locking it.
func (r *Repository) GetProduct(ctx context.Context, productID uuid.UUID) (ledger.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID))
}

// ListMovements returns the newest movements of a product first.
func (r *Repository) ListMovements(ctx context.Context, productID uuid.UUID, limit, offset int) ([]ledger.Movement, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements WHERE product_id = $1`, productID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+movementColumns+`
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`, productID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectMovements(rows)
	return items, total, err
}

// ListLedger returns every movement of a product, oldest first.
func (r *Repository) ListLedger(ctx context.Context, productID uuid.UUID) ([]ledger.Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+movementColumns+`
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY seq ASC
	`, productID)
	if err != nil {
		return nil, err
	}
	return collectMovements(rows)
}

// CreateProduct inserts a product with zero stock. Opening stock is booked through the ledger.
func (r *Repository) CreateProduct(ctx context.Context, p ledger.Product) (ledger.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `
		INSERT INTO products (name, sku, price, low_stock_threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price,
			low_stock_threshold = EXCLUDED.low_stock_threshold, updated_at = now()
		RETURNING `+productColumns,
		p.Name, p.SKU, p.Price, p.LowStockThreshold))
}

// TxStore implements ledger.Store on top of an open transaction.
type TxStore struct {
	q db.Querier
}

// NewTxStore binds a ledger store to q, usually a pgx.Tx owned by the caller.
func NewTxStore(q db.Querier) *TxStore {
	return &TxStore{q: q}
}

// LockProduct reads the product row with FOR UPDATE.
func (s *TxStore) LockProduct(ctx context.Context, productID uuid.UUID) (ledger.Product, error) {
	return scanProduct(s.q.QueryRow(ctx, lockProductQuery, productID))
}

// SetStock writes the new stock quantity of a locked product.
func (s *TxStore) SetStock(ctx context.Context, productID uuid.UUID, stock int) error {
	tag, err := s.q.Exec(ctx, `UPDATE products SET stock_quantity = $2, updated_at = now() WHERE id = $1`, productID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrProductNotFound
	}
	return nil
}

// InsertMovement appends a ledger row.
func (s *TxStore) InsertMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO stock_movements (
			product_id, change_amount, previous_stock, new_stock, movement_type, order_id, note,
			supplier_name, invoice_number, invoice_file_key, created_by, created_by_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+movementColumns,
		m.ProductID, m.Change, m.PreviousStock, m.NewStock, string(m.Type), m.OrderID, m.Note,
		m.SupplierName, m.InvoiceNumber, m.InvoiceFileKey, m.CreatedBy, m.CreatedByName,
	)
	return scanMovement(row)
}

func scanProduct(row pgx.Row) (ledger.Product, error) {
	var p ledger.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Stock, &p.LowStockThreshold, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Product{}, ledger.ErrProductNotFound
	}
	return p, err
}

func scanMovement(row pgx.Row) (ledger.Movement, error) {
	var m ledger.Movement
	var movementType string
	err := row.Scan(
		&m.ID, &m.ProductID, &m.Change, &m.PreviousStock, &m.NewStock, &movementType, &m.OrderID, &m.Note,
		&m.SupplierName, &m.InvoiceNumber, &m.InvoiceFileKey, &m.CreatedBy, &m.CreatedByName, &m.CreatedAt,
	)
	m.Type = ledger.MovementType(movementType)
	return m, err
}

func collectMovements(rows pgx.Rows) ([]ledger.Movement, error) {
	defer rows.Close()

	items := make([]ledger.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
