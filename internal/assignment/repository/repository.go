package repository

import (
	"context"

	"callcenter_backend/internal/assignment/service"
	orderdomain "callcenter_backend/internal/orders/domain"
	usersrepo "callcenter_backend/internal/users/repository"
	"callcenter_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository opens assignment transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates the assignment repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn in a transaction.
func (r *Repository) InTx(ctx context.Context, fn func(store service.Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewTxStore(tx))
	})
}

// TxStore implements service.Store on an open transaction.
type TxStore struct {
	*usersrepo.TxStore
	q db.Querier
}

// NewTxStore wraps q.
func NewTxStore(q db.Querier) *TxStore {
	return &TxStore{TxStore: usersrepo.NewTxStore(q), q: q}
}

// AssignOrders writes a to the orders in ids and returns the ids it found.
func (s *TxStore) AssignOrders(ctx context.Context, ids []uuid.UUID, a orderdomain.Assignment) ([]uuid.UUID, error) {
	return collectIDs(s.q.Query(ctx, `
		UPDATE orders
		SET assigned_agent_id = $2, assigned_agent_name = $3, assigned_at = $4, assigned_by = $5, updated_at = now()
		WHERE id = ANY($1)
		RETURNING id
	`, ids, a.AgentID, a.AgentName, a.AssignedAt, a.AssignedBy))
}

// AssignLeads writes a to the prediction leads in ids and returns the ids it found.
func (s *TxStore) AssignLeads(ctx context.Context, ids []uuid.UUID, a orderdomain.Assignment) ([]uuid.UUID, error) {
	return collectIDs(s.q.Query(ctx, `
		UPDATE prediction_leads
		SET assigned_agent_id = $2, assigned_agent_name = $3, assigned_at = $4, assigned_by = $5, updated_at = now()
		WHERE id = ANY($1)
		RETURNING id
	`, ids, a.AgentID, a.AgentName, a.AssignedAt, a.AssignedBy))
}

// RecountAssigned refreshes assigned_count on the lists holding leadIDs.
func (s *TxStore) RecountAssigned(ctx context.Context, leadIDs []uuid.UUID) error {
	_, err := s.q.Exec(ctx, `
		UPDATE prediction_lists l
		SET assigned_count = (
				SELECT count(*) FROM prediction_leads p
				WHERE p.list_id = l.id AND p.assigned_agent_id IS NOT NULL
			),
			updated_at = now()
		WHERE l.id IN (SELECT DISTINCT list_id FROM prediction_leads WHERE id = ANY($1))
	`, leadIDs)
	return err
}

// OpenWorkload counts each agent's items that are still being worked.
func (s *TxStore) OpenWorkload(ctx context.Context, kind service.Kind, agentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT assigned_agent_id, count(*)
		FROM orders
		WHERE assigned_agent_id = ANY($1) AND status IN ('pending', 'take', 'call_again')
		GROUP BY assigned_agent_id`
	if kind == service.KindLeads {
		query = `
		SELECT assigned_agent_id, count(*)
		FROM prediction_leads
		WHERE assigned_agent_id = ANY($1) AND status IN ('not_contacted', 'no_answer', 'interested', 'call_again')
		GROUP BY assigned_agent_id`
	}

	rows, err := s.q.Query(ctx, query, agentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int, len(agentIDs))
	for rows.Next() {
		var (
			id uuid.UUID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func collectIDs(rows pgx.Rows, err error) ([]uuid.UUID, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

var _ service.Store = (*TxStore)(nil)
