// Package repository provides PostgreSQL access for orders and their history.
package repository

import (
	"context"
	"errors"

	invrepo "callcenter_backend/internal/inventory/repository"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/internal/orders/service"
	"callcenter_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderColumns is the select list scanned by ScanOrder.
const OrderColumns = `id, code, product_id, product_name, customer_name, customer_phone, customer_city,
	customer_address, quantity, unit_price, status, notes, assigned_agent_id, assigned_agent_name,
	assigned_at, assigned_by, source_type, source_lead_id, created_by, created_at, updated_at`

const historyColumns = `id, order_id, from_status, to_status, changed_by, changed_by_name, changed_at`

// Repository reads orders and opens order transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn with an order store bound to a new transaction.
func (r *Repository) InTx(ctx context.Context, fn func(store service.Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewTxStore(tx))
	})
}

// GetOrder returns an order without locking it.
func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return ScanOrder(r.pool.QueryRow(ctx, `SELECT `+OrderColumns+` FROM orders WHERE id = $1`, orderID))
}

// ListHistory returns an order's history in the order it was written.
func (r *Repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]domain.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM order_history
		WHERE order_id = $1
		ORDER BY seq ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, entry)
	}
	return items, rows.Err()
}

// TxStore implements service.Store on an open transaction. Stock operations
// go through the embedded inventory store on the same transaction.
type TxStore struct {
	*invrepo.TxStore
	q db.Querier
}

// NewTxStore binds an order store to q.
func NewTxStore(q db.Querier) *TxStore {
	return &TxStore{TxStore: invrepo.NewTxStore(q), q: q}
}

// Querier returns the transaction the store writes through.
func (s *TxStore) Querier() db.Querier {
	return s.q
}

// LockOrder reads the order row with FOR UPDATE.
func (s *TxStore) LockOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return ScanOrder(s.q.QueryRow(ctx, `SELECT `+OrderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
}

// LockBySourceLead reads the order promoted from leadID with FOR UPDATE.
func (s *TxStore) LockBySourceLead(ctx context.Context, sourceType domain.SourceType, leadID uuid.UUID) (domain.Order, error) {
	return ScanOrder(s.q.QueryRow(ctx, `
		SELECT `+OrderColumns+`
		FROM orders
		WHERE source_type = $1 AND source_lead_id = $2
		FOR UPDATE
	`, string(sourceType), leadID))
}

const hasDeductionQuery = `
	SELECT EXISTS (
		SELECT 1 FROM stock_movements
		WHERE order_id = $1 AND movement_type = 'order_deduction'
	)`

// HasDeduction reports whether the ledger holds a deduction for the order.
func (s *TxStore) HasDeduction(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, hasDeductionQuery, orderID).Scan(&exists)
	return exists, err
}

// InsertOrder creates an order row. The code is assigned by the database.
func (s *TxStore) InsertOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	return ScanOrder(s.q.QueryRow(ctx, `
		INSERT INTO orders (
			product_id, product_name, customer_name, customer_phone, customer_city, customer_address,
			quantity, unit_price, status, notes, assigned_agent_id, assigned_agent_name, assigned_at,
			assigned_by, source_type, source_lead_id, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING `+OrderColumns,
		o.ProductID, o.ProductName, o.Customer.Name, o.Customer.Phone, o.Customer.City, o.Customer.Address,
		o.Quantity, o.UnitPrice, string(o.Status), o.Notes, o.Assignment.AgentID, o.Assignment.AgentName,
		o.Assignment.AssignedAt, o.Assignment.AssignedBy, string(o.SourceType), o.SourceLeadID, o.CreatedBy,
	))
}

// UpdateDetails writes the editable fields. Status and assignment are not touched.
func (s *TxStore) UpdateDetails(ctx context.Context, o domain.Order) (domain.Order, error) {
	return ScanOrder(s.q.QueryRow(ctx, `
		UPDATE orders
		SET product_id = $2, product_name = $3, customer_name = $4, customer_phone = $5,
			customer_city = $6, customer_address = $7, quantity = $8, unit_price = $9, notes = $10,
			updated_at = now()
		WHERE id = $1
		RETURNING `+OrderColumns,
		o.ID, o.ProductID, o.ProductName, o.Customer.Name, o.Customer.Phone,
		o.Customer.City, o.Customer.Address, o.Quantity, o.UnitPrice, o.Notes,
	))
}

// UpdateStatus writes a new status.
func (s *TxStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.Status) (domain.Order, error) {
	return ScanOrder(s.q.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+OrderColumns,
		orderID, string(status),
	))
}

// InsertHistory appends a history row.
func (s *TxStore) InsertHistory(ctx context.Context, e domain.HistoryEntry) (domain.HistoryEntry, error) {
	var from *string
	if e.FromStatus != nil {
		value := string(*e.FromStatus)
		from = &value
	}
	return scanHistory(s.q.QueryRow(ctx, `
		INSERT INTO order_history (order_id, from_status, to_status, changed_by, changed_by_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+historyColumns,
		e.OrderID, from, string(e.ToStatus), e.ChangedBy, e.ChangedByName,
	))
}

// ScanOrder scans a row selected with OrderColumns.
func ScanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o          domain.Order
		status     string
		sourceType string
	)
	err := row.Scan(
		&o.ID, &o.Code, &o.ProductID, &o.ProductName, &o.Customer.Name, &o.Customer.Phone, &o.Customer.City,
		&o.Customer.Address, &o.Quantity, &o.UnitPrice, &status, &o.Notes, &o.Assignment.AgentID,
		&o.Assignment.AgentName, &o.Assignment.AssignedAt, &o.Assignment.AssignedBy, &sourceType,
		&o.SourceLeadID, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Status = domain.Status(status)
	o.SourceType = domain.SourceType(sourceType)
	return o, err
}

func scanHistory(row pgx.Row) (domain.HistoryEntry, error) {
	var (
		e    domain.HistoryEntry
		from *string
		to   string
	)
	err := row.Scan(&e.ID, &e.OrderID, &from, &to, &e.ChangedBy, &e.ChangedByName, &e.ChangedAt)
	if from != nil {
		status := domain.Status(*from)
		e.FromStatus = &status
	}
	e.ToStatus = domain.Status(to)
	return e, err
}

var _ service.Store = (*TxStore)(nil)
