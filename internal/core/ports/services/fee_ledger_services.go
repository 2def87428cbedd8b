package services

import (
	"context"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/SscSPs/fee_ledger_app/internal/dto"
	"github.com/shopspring/decimal"
)

// FeeStructureSvc resolves nominal fees from master data. Implementations hold no mutable state.
type FeeStructureSvc interface {
	// Resolve produces the tuition and (optionally) transport figures for a placement.
	Resolve(ctx context.Context, scope domain.Scope, query domain.FeeStructureQuery) (*domain.FeeStructure, error)

	// TermPercents returns the configured split for a fee kind.
	TermPercents(kind domain.FeeKind) []decimal.Decimal
}

// ConcessionWriterSvc defines the concession mutations of a row
type ConcessionWriterSvc interface {
	// ApplyConcession sets the concession of a row to an absolute amount and re-splits its terms.
	ApplyConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionRequest, actor domain.Actor) (*domain.FeeBalance, error)

	// LockConcession freezes the concession of a row. Locking twice is a no-op.
	LockConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionLockRequest, actor domain.Actor) (*domain.FeeBalance, error)

	// UnlockConcession lifts the lock. Only elevated actors may do this.
	UnlockConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionLockRequest, actor domain.Actor) (*domain.FeeBalance, error)
}

// ConcessionReaderSvc exposes the concession audit trail
type ConcessionReaderSvc interface {
	// ListConcessionEvents returns the audit trail of a row, oldest first.
	ListConcessionEvents(ctx context.Context, scope domain.Scope, key domain.BalanceKey) ([]domain.ConcessionEvent, error)
}

// ConcessionSvcFacade combines all concession service interfaces
type ConcessionSvcFacade interface {
	ConcessionWriterSvc
	ConcessionReaderSvc
}

// FeeBalanceReaderSvc defines read operations for fee balance rows
type FeeBalanceReaderSvc interface {
	// GetFeeBalance retrieves one row. Rows outside scope are reported as not found.
	GetFeeBalance(ctx context.Context, scope domain.Scope, key domain.BalanceKey) (*domain.FeeBalance, error)

	// ListFeeBalances retrieves the rows of a scope matching the filter.
	ListFeeBalances(ctx context.Context, scope domain.Scope, filter domain.BalanceFilter) ([]domain.FeeBalance, error)
}

// FeeBalanceWriterSvc defines row creation and cancellation
type FeeBalanceWriterSvc interface {
	// CreateFeeBalance resolves an enrollment's fees and inserts its row.
	CreateFeeBalance(ctx context.Context, scope domain.Scope, req dto.CreateFeeBalanceRequest, actor domain.Actor) (*domain.FeeBalance, error)

	// CancelFeeBalance moves a row to its terminal state.
	CancelFeeBalance(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.CancelFeeBalanceRequest, actor domain.Actor) (*domain.FeeBalance, error)

	// ConvertReservation seeds an enrollment's rows from the fees agreed at reservation time.
	ConvertReservation(ctx context.Context, scope domain.Scope, reservationID string, req dto.ConvertReservationRequest, actor domain.Actor) (*domain.ConversionResult, error)
}

// FeeBalanceSvcFacade combines all fee balance service interfaces
type FeeBalanceSvcFacade interface {
	FeeBalanceReaderSvc
	FeeBalanceWriterSvc
}

// PaymentWriterSvc defines money movements
type PaymentWriterSvc interface {
	// PostPayment records a payment and applies it to the row its purpose targets, if any.
	PostPayment(ctx context.Context, scope domain.Scope, req dto.PostPaymentRequest, actor domain.Actor) (*domain.PostingResult, error)

	// PostTermPayment posts a payment against one row with an optional term hint.
	PostTermPayment(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.TermPaymentRequest, actor domain.Actor) (*domain.PostingResult, error)

	// Refund returns money held against a row.
	Refund(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.RefundRequest, actor domain.Actor) (*domain.PostingResult, error)
}

// PaymentReaderSvc defines read operations for payment events
type PaymentReaderSvc interface {
	// ListPayments retrieves a page of payment events, newest first.
	ListPayments(ctx context.Context, scope domain.Scope, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error)
}

// PaymentSvcFacade combines all payment service interfaces
type PaymentSvcFacade interface {
	PaymentWriterSvc
	PaymentReaderSvc
}

// BulkInitializerSvc seeds rows for a whole cohort
type BulkInitializerSvc interface {
	// InitializeForCohort creates every missing row of the cohort and reports what it skipped.
	InitializeForCohort(ctx context.Context, scope domain.Scope, cohort domain.CohortFilter, actor domain.Actor) (*domain.BulkInitResult, error)
}

// DashboardSvc produces summary statistics
type DashboardSvc interface {
	// Dashboard aggregates the rows in scope from one consistent snapshot.
	Dashboard(ctx context.Context, scope domain.Scope, filter domain.DashboardFilter) (*domain.DashboardStats, error)
}
