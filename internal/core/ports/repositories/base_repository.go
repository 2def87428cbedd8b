package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager scopes a ledger mutation to one database transaction.
// Row locks taken with the *ForUpdate readers are held until Commit or Rollback.
type TransactionManager interface {
	// Begin starts a read-write transaction.
	Begin(ctx context.Context) (pgx.Tx, error)

	// Commit commits tx. Driver failures are classified into the apperrors taxonomy.
	Commit(ctx context.Context, tx pgx.Tx) error

	// Rollback aborts tx. Rolling back a committed transaction is a no-op.
	Rollback(ctx context.Context, tx pgx.Tx) error
}

// SnapshotBeginner opens read-only transactions in which every query sees the same snapshot.
type SnapshotBeginner interface {
	BeginSnapshot(ctx context.Context) (pgx.Tx, error)
}
