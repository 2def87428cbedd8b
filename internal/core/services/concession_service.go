package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/dto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// concessionService changes and audits the concession on fee balance rows.
type concessionService struct {
	balanceMutator
	events portsrepo.ConcessionEventRepository
}

// NewConcessionService creates a new concession authority.
func NewConcessionService(txManager portsrepo.TransactionManager, balances portsrepo.FeeBalanceRepositoryFacade, events portsrepo.ConcessionEventRepository, opts ...ServiceOption) portssvc.ConcessionSvcFacade {
	return &concessionService{
		balanceMutator: balanceMutator{BaseService: newBaseService(txManager, opts), balances: balances},
		events:         events,
	}
}

var _ portssvc.ConcessionSvcFacade = (*concessionService)(nil)

func (s *concessionService) recordEvent(ctx context.Context, tx pgx.Tx, b *domain.FeeBalance, action domain.ConcessionAction, previous decimal.Decimal, actor domain.Actor, reason *string) error {
	event := domain.ConcessionEvent{
		EventID:        uuid.NewString(),
		EnrollmentID:   b.EnrollmentID,
		FeeKind:        b.FeeKind,
		Action:         action,
		PreviousAmount: previous,
		NewAmount:      b.ConcessionAmount,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		Reason:         reason,
		CreatedAt:      s.now(),
	}
	if err := s.events.SaveConcessionEventInTx(ctx, tx, event); err != nil {
		return fmt.Errorf("record %s concession event: %w", action, err)
	}
	return nil
}

// ApplyConcession sets the concession of a row to an absolute amount and re-splits its terms.
func (s *concessionService) ApplyConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	b, err := s.mutate(ctx, "apply_concession", scope, key, actor, func(tx pgx.Tx, b *domain.FeeBalance) (bool, error) {
		previous := b.ConcessionAmount
		if err := b.ApplyConcession(req.Amount); err != nil {
			return false, err
		}
		return true, s.recordEvent(ctx, tx, b, domain.ConcessionApply, previous, actor, req.Reason)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to apply concession",
			slog.String("balance", key.String()),
			slog.String("amount", req.Amount.String()))
		return nil, err
	}
	s.LogInfo(ctx, "Concession applied",
		slog.String("balance", key.String()),
		slog.String("concession", b.ConcessionAmount.String()),
		slog.String("total_fee", b.TotalFee.String()))
	return b, nil
}

// LockConcession freezes the concession of a row. Locking twice is a no-op.
func (s *concessionService) LockConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionLockRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	b, err := s.mutate(ctx, "lock_concession", scope, key, actor, func(tx pgx.Tx, b *domain.FeeBalance) (bool, error) {
		if b.ConcessionLocked {
			return false, nil
		}
		if err := b.LockConcession(); err != nil {
			return false, err
		}
		return true, s.recordEvent(ctx, tx, b, domain.ConcessionLock, b.ConcessionAmount, actor, req.Reason)
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Concession locked", slog.String("balance", key.String()))
	return b, nil
}

// UnlockConcession lifts the lock. Only elevated actors may do this.
func (s *concessionService) UnlockConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionLockRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	if !actor.IsElevated() {
		return nil, apperrors.NewLedgerError(apperrors.ErrForbidden, key.EnrollmentID, string(key.FeeKind),
			"role=ADMIN", fmt.Sprintf("role %s may not unlock concessions", actor.Role))
	}
	b, err := s.mutate(ctx, "unlock_concession", scope, key, actor, func(tx pgx.Tx, b *domain.FeeBalance) (bool, error) {
		if !b.ConcessionLocked {
			return false, nil
		}
		if err := b.UnlockConcession(); err != nil {
			return false, err
		}
		return true, s.recordEvent(ctx, tx, b, domain.ConcessionUnlock, b.ConcessionAmount, actor, req.Reason)
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Concession unlocked",
		slog.String("balance", key.String()),
		slog.String("actor_id", actor.UserID))
	return b, nil
}

// ListConcessionEvents returns the audit trail of a row, oldest first.
func (s *concessionService) ListConcessionEvents(ctx context.Context, scope domain.Scope, key domain.BalanceKey) ([]domain.ConcessionEvent, error) {
	if err := validateRequest(scope, key); err != nil {
		return nil, err
	}
	b, err := s.balances.FindFeeBalance(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := checkScope(scope, b); err != nil {
		return nil, err
	}
	return s.events.ListConcessionEvents(ctx, key)
}
