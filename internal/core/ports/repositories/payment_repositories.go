package repositories

import (
	"context"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// PaymentReader defines read operations for payment events
type PaymentReader interface {
	// FindPaymentByIdempotencyKey retrieves the event stored under a client key in a scope, with its allocations.
	// Keys are unique per (branch, academic year).
	FindPaymentByIdempotencyKey(ctx context.Context, scope domain.Scope, idempotencyKey string) (*domain.PaymentEvent, error)

	// ListPayments retrieves events of a scope, newest first, using keyset pagination.
	ListPayments(ctx context.Context, scope domain.Scope, filter domain.PaymentFilter) ([]domain.PaymentEvent, error)
}

// PaymentWriter defines write operations for payment events. Events are never updated.
type PaymentWriter interface {
	// SavePaymentInTx appends an event and its allocations. A reused idempotency key yields apperrors.ErrDuplicate.
	SavePaymentInTx(ctx context.Context, tx pgx.Tx, payment domain.PaymentEvent) error
}

// PaymentRepositoryFacade combines all payment repository interfaces
type PaymentRepositoryFacade interface {
	PaymentReader
	PaymentWriter
}

// ConcessionEventRepository stores the concession audit trail
type ConcessionEventRepository interface {
	// SaveConcessionEventInTx appends an audit event.
	SaveConcessionEventInTx(ctx context.Context, tx pgx.Tx, event domain.ConcessionEvent) error

	// ListConcessionEvents retrieves the audit trail of a row, oldest first.
	ListConcessionEvents(ctx context.Context, key domain.BalanceKey) ([]domain.ConcessionEvent, error)
}
