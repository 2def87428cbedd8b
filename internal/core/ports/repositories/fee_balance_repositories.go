package repositories

import (
	"context"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// FeeBalanceReader defines read operations for fee balance rows
type FeeBalanceReader interface {
	// FindFeeBalance retrieves a single row by its key.
	FindFeeBalance(ctx context.Context, key domain.BalanceKey) (*domain.FeeBalance, error)

	// ListFeeBalances retrieves the rows of a scope matching the filter, ordered by enrollment then fee kind.
	ListFeeBalances(ctx context.Context, scope domain.Scope, filter domain.BalanceFilter) ([]domain.FeeBalance, error)

	// ListExistingFeeKinds returns, per enrollment, the fee kinds that already have a row.
	ListExistingFeeKinds(ctx context.Context, enrollmentIDs []string) (map[string][]domain.FeeKind, error)
}

// FeeBalanceWriter defines transactional write operations for fee balance rows
type FeeBalanceWriter interface {
	// FindFeeBalanceForUpdate retrieves a row and locks it until tx ends.
	FindFeeBalanceForUpdate(ctx context.Context, tx pgx.Tx, key domain.BalanceKey) (*domain.FeeBalance, error)

	// CreateFeeBalanceInTx inserts a new row. An existing row for the key yields apperrors.ErrDuplicate.
	CreateFeeBalanceInTx(ctx context.Context, tx pgx.Tx, balance domain.FeeBalance) error

	// UpdateFeeBalanceInTx writes the row's figures if its stored version still equals balance.Version,
	// then bumps the version. A stale version yields apperrors.ErrConflict.
	UpdateFeeBalanceInTx(ctx context.Context, tx pgx.Tx, balance *domain.FeeBalance) error
}

// FeeBalanceRepositoryFacade combines all fee balance repository interfaces
type FeeBalanceRepositoryFacade interface {
	FeeBalanceReader
	FeeBalanceWriter
}
