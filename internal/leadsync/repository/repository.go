// Package repository stores inbound lead statuses and the lead sync failure outbox.
package repository

import (
	"context"
	"errors"
	"time"

	"callcenter_backend/internal/leadsync"
	"callcenter_backend/internal/orders/domain"
	ordersrepo "callcenter_backend/internal/orders/repository"
	"callcenter_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements leadsync.Store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new lead sync repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn in a transaction.
func (r *Repository) InTx(ctx context.Context, fn func(w leadsync.LeadWriter) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&leadWriter{q: tx})
	})
}

type leadWriter struct {
	q db.Querier
}

// ShareOrder reads the order with FOR SHARE, so a transition waits for the lead write.
func (w *leadWriter) ShareOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return ordersrepo.ScanOrder(w.q.QueryRow(ctx, `SELECT `+ordersrepo.OrderColumns+` FROM orders WHERE id = $1 FOR SHARE`, orderID))
}

// SetLeadStatus writes the mirrored status of an inbound lead.
func (w *leadWriter) SetLeadStatus(ctx context.Context, leadID uuid.UUID, status leadsync.LeadStatus) error {
	tag, err := w.q.Exec(ctx, `
		UPDATE inbound_leads SET status = $2, updated_at = now()
		WHERE id = $1
	`, leadID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return leadsync.ErrLeadNotFound
	}
	return nil
}

// RecordFailure opens a failure row for the order, or refreshes the open one.
func (r *Repository) RecordFailure(ctx context.Context, f leadsync.Failure) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_sync_failures (order_id, inbound_lead_id, target_status, last_error, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) WHERE state <> 'resolved'
		DO UPDATE SET target_status = EXCLUDED.target_status, last_error = EXCLUDED.last_error,
			state = 'pending', next_attempt_at = EXCLUDED.next_attempt_at, updated_at = now()
	`, f.OrderID, f.InboundLeadID, string(f.TargetStatus), f.LastError, f.NextAttemptAt)
	return err
}

// ResolveFailures closes every open failure of the order.
func (r *Repository) ResolveFailures(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_sync_failures SET state = 'resolved', updated_at = now()
		WHERE order_id = $1 AND state <> 'resolved'
	`, orderID)
	return err
}

// GetFailure loads one failure row.
func (r *Repository) GetFailure(ctx context.Context, failureID uuid.UUID) (leadsync.Failure, error) {
	var (
		f      leadsync.Failure
		target string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, inbound_lead_id, target_status, last_error, attempts, next_attempt_at
		FROM lead_sync_failures
		WHERE id = $1
	`, failureID).Scan(&f.ID, &f.OrderID, &f.InboundLeadID, &target, &f.LastError, &f.Attempts, &f.NextAttemptAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return leadsync.Failure{}, errors.New("lead sync failure not found")
	}
	f.TargetStatus = leadsync.LeadStatus(target)
	return f, err
}

// RescheduleFailure returns a failure to pending with a later attempt time.
func (r *Repository) RescheduleFailure(ctx context.Context, failureID uuid.UUID, lastError string, nextAttemptAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_sync_failures
		SET state = 'pending', attempts = attempts + 1, last_error = $2, next_attempt_at = $3, updated_at = now()
		WHERE id = $1 AND state <> 'resolved'
	`, failureID, lastError, nextAttemptAt)
	return err
}

// ClaimDue marks up to limit due failures as dispatched and returns their ids.
// SKIP LOCKED lets several dispatchers run side by side.
func (r *Repository) ClaimDue(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE lead_sync_failures
		SET state = 'dispatched', updated_at = now()
		WHERE id IN (
			SELECT id FROM lead_sync_failures
			WHERE state = 'pending' AND next_attempt_at <= now()
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// ReleaseStale returns dispatched rows whose task never reported back to pending.
func (r *Repository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_sync_failures SET state = 'pending', updated_at = now()
		WHERE state = 'dispatched' AND updated_at < now() - make_interval(secs => $1)
	`, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkPending returns a claimed failure to pending after its task could not be enqueued.
func (r *Repository) MarkPending(ctx context.Context, failureID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lead_sync_failures SET state = 'pending', updated_at = now()
		WHERE id = $1 AND state = 'dispatched'
	`, failureID)
	return err
}

var _ leadsync.Store = (*Repository)(nil)
