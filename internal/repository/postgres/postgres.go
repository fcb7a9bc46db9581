package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arklim/account-service/internal/repository"
)

const uniqueViolation = "23505"

// pgExecutor is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// classify maps driver errors onto repository sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s violates %s", repository.ErrConflict, op, pgErr.ConstraintName)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%w: %s: %v", repository.ErrUnavailable, op, err)
}
