package services

import (
	"context"
	"fmt"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

// balanceMutation changes a locked working copy of a row. It reports whether the row changed;
// an unchanged row is not written back.
type balanceMutation func(tx pgx.Tx, b *domain.FeeBalance) (changed bool, err error)

// balanceMutator runs every row mutation the same way: lock, mutate, check, compare-and-swap.
type balanceMutator struct {
	BaseService
	balances portsrepo.FeeBalanceRepositoryFacade
}

// mutate applies fn to the row identified by key inside one transaction, retrying on conflict.
// Any error rolls the transaction back, so a failed mutation never changes the stored row.
func (m *balanceMutator) mutate(ctx context.Context, op string, scope domain.Scope, key domain.BalanceKey, actor domain.Actor, fn balanceMutation) (*domain.FeeBalance, error) {
	if err := validateRequest(scope, key); err != nil {
		return nil, err
	}
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: actor is required", apperrors.ErrUnauthorized)
	}

	var result *domain.FeeBalance
	err := m.withConflictRetry(ctx, op, func() error {
		return m.inTx(ctx, func(tx pgx.Tx) error {
			b, err := m.balances.FindFeeBalanceForUpdate(ctx, tx, key)
			if err != nil {
				return err
			}
			if err := checkScope(scope, b); err != nil {
				return err
			}

			changed, err := fn(tx, b)
			if err != nil {
				return err
			}
			if !changed {
				result = b
				return nil
			}

			if err := b.CheckInvariants(); err != nil {
				return err
			}
			b.Touch(actor.UserID, m.now())
			if err := m.balances.UpdateFeeBalanceInTx(ctx, tx, b); err != nil {
				return err
			}
			result = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
