package db

import (
	"context"
	"errors"

	"callcenter_backend/platform/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the application reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeLockNotAvailable     = "55P03"
)

// NormalizeError converts a storage error into an apperr error so raw driver
// text never reaches a client. Typed application errors pass through unchanged.
func NormalizeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindInternal, "request cancelled", err).WithOp(op)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return apperr.Wrap(apperr.KindConflict, "concurrent update, please retry", err).WithOp(op)
		case codeUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, "record already exists", err).WithOp(op)
		case codeForeignKeyViolation:
			return apperr.Wrap(apperr.KindValidation, "referenced record does not exist", err).WithOp(op)
		}
	}

	return apperr.Wrap(apperr.KindInternal, "internal error", err).WithOp(op)
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
