// Package webhook provides inbound lead intake for external sites.
// It handles API key management and turns each submission into a pending order.
package webhook

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"callcenter_backend/internal/inventory/ledger"
	ordersrepo "callcenter_backend/internal/orders/repository"
	"callcenter_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrWebhookNotFound = errors.New("webhook not found")

const webhookColumns = `id, name, key_hash, key_prefix, product_id, default_source, is_active, total_leads,
	created_by, created_at, updated_at`

// Webhook is an API-key-authenticated intake endpoint.
type Webhook struct {
	ID            uuid.UUID
	Name          string
	KeyHash       string
	KeyPrefix     string
	ProductID     *uuid.UUID
	DefaultSource string
	IsActive      bool
	TotalLeads    int
	CreatedBy     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InboundLead is a contact captured by a webhook.
type InboundLead struct {
	ID        uuid.UUID
	WebhookID *uuid.UUID
	Name      string
	Phone     string
	Source    string
	Status    string
	CreatedAt time.Time
}

// Repository provides data access for webhooks and inbound leads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new webhook repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GenerateAPIKey creates a new random API key and returns the plaintext key and its hash.
// The plaintext key is returned only once; only the hash is stored.
func GenerateAPIKey() (plaintext string, hash string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}
	plaintext = "whk_" + hex.EncodeToString(bytes)
	hash = HashKey(plaintext)
	prefix = plaintext[:12]
	return plaintext, hash, prefix, nil
}

// HashKey hashes a plaintext API key for lookup.
func HashKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// Create stores a new webhook.
func (r *Repository) Create(ctx context.Context, w Webhook) (Webhook, error) {
	return scanWebhook(r.pool.QueryRow(ctx, `
		INSERT INTO webhooks (name, key_hash, key_prefix, product_id, default_source, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+webhookColumns,
		w.Name, w.KeyHash, w.KeyPrefix, w.ProductID, w.DefaultSource, w.CreatedBy,
	))
}

// GetByHash retrieves an active webhook by its key hash.
func (r *Repository) GetByHash(ctx context.Context, keyHash string) (Webhook, error) {
	return scanWebhook(r.pool.QueryRow(ctx, `
		SELECT `+webhookColumns+`
		FROM webhooks
		WHERE key_hash = $1 AND is_active = true
	`, keyHash))
}

// List returns all webhooks, newest first.
func (r *Repository) List(ctx context.Context) ([]Webhook, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+webhookColumns+` FROM webhooks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// Revoke deactivates a webhook.
func (r *Repository) Revoke(ctx context.Context, webhookID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhooks SET is_active = false, updated_at = now()
		WHERE id = $1
	`, webhookID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWebhookNotFound
	}
	return nil
}

// InTx runs fn with an intake store bound to a new transaction.
func (r *Repository) InTx(ctx context.Context, fn func(store IntakeStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewTxStore(tx))
	})
}

// TxStore implements IntakeStore on an open transaction.
type TxStore struct {
	*ordersrepo.TxStore
	q db.Querier
}

// NewTxStore binds an intake store to q.
func NewTxStore(q db.Querier) *TxStore {
	return &TxStore{TxStore: ordersrepo.NewTxStore(q), q: q}
}

// InsertInboundLead creates a pending inbound lead.
func (s *TxStore) InsertInboundLead(ctx context.Context, l InboundLead) (InboundLead, error) {
	err := s.q.QueryRow(ctx, `
		INSERT INTO inbound_leads (webhook_id, name, phone, source)
		VALUES ($1, $2, $3, $4)
		RETURNING id, webhook_id, name, phone, source, status, created_at
	`, l.WebhookID, l.Name, l.Phone, l.Source).Scan(
		&l.ID, &l.WebhookID, &l.Name, &l.Phone, &l.Source, &l.Status, &l.CreatedAt,
	)
	return l, err
}

// RecountLeads recomputes webhooks.total_leads from inbound_leads.
func (s *TxStore) RecountLeads(ctx context.Context, webhookID uuid.UUID) error {
	_, err := s.q.Exec(ctx, `
		UPDATE webhooks
		SET total_leads = (SELECT count(*) FROM inbound_leads WHERE webhook_id = $1), updated_at = now()
		WHERE id = $1
	`, webhookID)
	return err
}

// ProductSnapshot reads the product name and price an intake order is priced from.
func (s *TxStore) ProductSnapshot(ctx context.Context, productID uuid.UUID) (ledger.Product, error) {
	var p ledger.Product
	err := s.q.QueryRow(ctx, `SELECT id, name, price FROM products WHERE id = $1`, productID).Scan(&p.ID, &p.Name, &p.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Product{}, ledger.ErrProductNotFound
	}
	return p, err
}

func scanWebhook(row pgx.Row) (Webhook, error) {
	var w Webhook
	err := row.Scan(
		&w.ID, &w.Name, &w.KeyHash, &w.KeyPrefix, &w.ProductID, &w.DefaultSource, &w.IsActive, &w.TotalLeads,
		&w.CreatedBy, &w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Webhook{}, ErrWebhookNotFound
	}
	return w, err
}

var _ IntakeStore = (*TxStore)(nil)
