package repository

import (
	"context"
	"errors"

	"callcenter_backend/internal/users/domain"
	"callcenter_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userSelect = `
	SELECT u.id, u.email, u.full_name, u.password_hash,
		COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}') AS roles,
		u.is_suspended, u.suspended_at, u.deleted_at, u.created_at, u.updated_at
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id`

const userGroupBy = ` GROUP BY u.id`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser inserts the account and its roles together.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	var created domain.User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		if err := tx.QueryRow(ctx, `
			INSERT INTO users (email, full_name, password_hash)
			VALUES ($1, $2, $3)
			RETURNING id
		`, u.Email, u.FullName, u.PasswordHash).Scan(&id); err != nil {
			return err
		}
		if err := replaceRoles(ctx, tx, id, u.Roles); err != nil {
			return err
		}
		var err error
		created, err = NewTxStore(tx).GetUser(ctx, id)
		return err
	})
	return created, err
}

// GetUser returns a live user with roles.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return NewTxStore(r.pool).GetUser(ctx, id)
}

// ListUsers returns all live users ordered by name.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	return queryUsers(ctx, r.pool, userSelect+` WHERE u.deleted_at IS NULL`+userGroupBy+` ORDER BY u.full_name`)
}

// ListAgents returns active users holding any agent role.
func (r *Repository) ListAgents(ctx context.Context) ([]domain.User, error) {
	return queryUsers(ctx, r.pool, userSelect+`
		WHERE u.deleted_at IS NULL AND u.is_suspended = false
			AND EXISTS (
				SELECT 1 FROM user_roles a
				WHERE a.user_id = u.id AND a.role IN ('agent', 'pending_agent', 'prediction_agent')
			)`+userGroupBy+` ORDER BY u.full_name`)
}

// SetRoles replaces the user's role set.
func (r *Repository) SetRoles(ctx context.Context, id uuid.UUID, roles []string) (domain.User, error) {
	var updated domain.User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT true FROM users WHERE id = $1 AND deleted_at IS NULL FOR UPDATE
		`, id).Scan(&exists); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrUserNotFound
			}
			return err
		}
		if err := replaceRoles(ctx, tx, id, roles); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, id); err != nil {
			return err
		}
		var err error
		updated, err = NewTxStore(tx).GetUser(ctx, id)
		return err
	})
	return updated, err
}

// SetSuspended suspends or reinstates a live user.
func (r *Repository) SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET is_suspended = $2,
			suspended_at = CASE WHEN $2 THEN now() ELSE NULL END,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, suspended)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SoftDelete marks a user deleted. Their history rows keep the reference.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// TxStore reads users on a caller's transaction.
type TxStore struct {
	q db.Querier
}

func NewTxStore(q db.Querier) *TxStore {
	return &TxStore{q: q}
}

// GetUser returns a live user with roles.
func (s *TxStore) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	users, err := queryUsers(ctx, s.q, userSelect+` WHERE u.id = $1 AND u.deleted_at IS NULL`+userGroupBy, id)
	if err != nil {
		return domain.User{}, err
	}
	if len(users) == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}
	return users[0], nil
}

const shareUserQuery = `SELECT id FROM users WHERE id = $1 AND deleted_at IS NULL FOR SHARE`

// ShareUser returns a live user and holds a share lock on the row until the
// transaction ends. Suspension, deletion and role changes wait for it.
func (s *TxStore) ShareUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var locked uuid.UUID
	if err := s.q.QueryRow(ctx, shareUserQuery, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return s.GetUser(ctx, id)
}

func replaceRoles(ctx context.Context, tx pgx.Tx, id uuid.UUID, roles []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`, id, roles)
	return err
}

func queryUsers(ctx context.Context, q db.Querier, sql string, args ...any) ([]domain.User, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Roles,
			&u.IsSuspended, &u.SuspendedAt, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
