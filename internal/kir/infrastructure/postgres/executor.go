package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kir/internal/kir/domain"
)

// Executor abstracts database operations that work with both pool and transaction,
// so each repository can run inside or outside Atomic unchanged.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Verify that both pgxpool.Pool and pgx.Tx implement Executor.
var (
	_ Executor = (*pgxpool.Pool)(nil)
	_ Executor = (pgx.Tx)(nil)
)

// Postgres error codes the wizard distinguishes.
const (
	codeUniqueViolation       = "23505"
	codeInsufficientPrivilege = "42501"
	codeSerializationFailure  = "40001"
	codeStringTooLong         = "22001"
)

// translate maps driver errors onto the domain taxonomy.
// Errors it does not recognise are returned unchanged and end up as unavailable.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrConflict)
	case codeInsufficientPrivilege:
		return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrPermissionDenied)
	case codeSerializationFailure:
		return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrOptimisticLock)
	case codeStringTooLong:
		// The column is not reported for this code, so the violation carries no field.
		return domain.NewValidationError(0, domain.Violation{
			Label:   "Stored value",
			Message: pgErr.Message,
		})
	default:
		return err
	}
}
