// Package repository provides PostgreSQL access for prediction leads.
package repository

import (
	"context"
	"errors"

	orderdomain "callcenter_backend/internal/orders/domain"
	ordersrepo "callcenter_backend/internal/orders/repository"
	"callcenter_backend/internal/predictions/domain"
	"callcenter_backend/internal/predictions/service"
	"callcenter_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, list_id, customer_name, customer_phone, customer_city, customer_address, product_id,
	product_name, quantity, unit_price, status, notes, assigned_agent_id, assigned_agent_name, assigned_at,
	assigned_by, created_at, updated_at`

// Repository reads prediction leads and opens lead transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new predictions repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn with a lead store bound to a new transaction.
func (r *Repository) InTx(ctx context.Context, fn func(store service.Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewTxStore(tx))
	})
}

// GetLead returns a lead without locking it.
func (r *Repository) GetLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM prediction_leads WHERE id = $1`, leadID))
}

// GetPromotedOrder returns the order promoted from the lead.
func (r *Repository) GetPromotedOrder(ctx context.Context, leadID uuid.UUID) (orderdomain.Order, error) {
	return ordersrepo.ScanOrder(r.pool.QueryRow(ctx, `
		SELECT `+ordersrepo.OrderColumns+`
		FROM orders
		WHERE source_type = $1 AND source_lead_id = $2
	`, string(orderdomain.SourcePredictionLead), leadID))
}

// TxStore implements service.Store on an open transaction.
type TxStore struct {
	*ordersrepo.TxStore
	q db.Querier
}

// NewTxStore binds a lead store to q.
func NewTxStore(q db.Querier) *TxStore {
	return &TxStore{TxStore: ordersrepo.NewTxStore(q), q: q}
}

// LockLead reads the lead row with FOR UPDATE.
func (s *TxStore) LockLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	return scanLead(s.q.QueryRow(ctx, `SELECT `+leadColumns+` FROM prediction_leads WHERE id = $1 FOR UPDATE`, leadID))
}

// UpdateLead writes contact fields, status, notes, quantity and price.
func (s *TxStore) UpdateLead(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	return scanLead(s.q.QueryRow(ctx, `
		UPDATE prediction_leads
		SET customer_name = $2, customer_phone = $3, customer_city = $4, customer_address = $5,
			quantity = $6, unit_price = $7, status = $8, notes = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		l.ID, l.Customer.Name, l.Customer.Phone, l.Customer.City, l.Customer.Address,
		l.Quantity, l.UnitPrice, string(l.Status), l.Notes,
	))
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		l      domain.Lead
		status string
	)
	err := row.Scan(
		&l.ID, &l.ListID, &l.Customer.Name, &l.Customer.Phone, &l.Customer.City, &l.Customer.Address, &l.ProductID,
		&l.ProductName, &l.Quantity, &l.UnitPrice, &status, &l.Notes, &l.Assignment.AgentID, &l.Assignment.AgentName,
		&l.Assignment.AssignedAt, &l.Assignment.AssignedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	l.Status = domain.Status(status)
	return l, err
}

var _ service.Store = (*TxStore)(nil)
