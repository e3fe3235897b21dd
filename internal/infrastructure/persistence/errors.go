package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/tourops/backend/internal/domain/shared"
)

// Postgres SQLSTATE codes raised when concurrent transactions collide
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// translateError maps driver-level transaction collisions to the domain's
// retryable concurrency conflict. Domain errors pass through untouched.
func translateError(err error) error {
	if err == nil || shared.CodeOf(err) != "" {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %w", shared.ErrConcurrencyConflict.WithDetail("sqlstate", pgErr.Code), err)
		case pgUniqueViolation:
			return shared.ErrAlreadyExists.WithDetail("constraint", pgErr.ConstraintName)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %w", shared.ErrConcurrencyConflict, err)
		}
	}
	return err
}
