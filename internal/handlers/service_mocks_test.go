package handlers_test

import (
	"context"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock FeeBalanceService ---
type MockFeeBalanceService struct {
	mock.Mock
}

func (m *MockFeeBalanceService) GetFeeBalance(ctx context.Context, scope domain.Scope, key domain.BalanceKey) (*domain.FeeBalance, error) {
	args := m.Called(ctx, scope, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeBalance), args.Error(1)
}
func (m *MockFeeBalanceService) ListFeeBalances(ctx context.Context, scope domain.Scope, filter domain.BalanceFilter) ([]domain.FeeBalance, error) {
	args := m.Called(ctx, scope, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeeBalance), args.Error(1)
}
func (m *MockFeeBalanceService) CreateFeeBalance(ctx context.Context, scope domain.Scope, req dto.CreateFeeBalanceRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	args := m.Called(ctx, scope, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeBalance), args.Error(1)
}
func (m *MockFeeBalanceService) CancelFeeBalance(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.CancelFeeBalanceRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	args := m.Called(ctx, scope, key, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeBalance), args.Error(1)
}
func (m *MockFeeBalanceService) ConvertReservation(ctx context.Context, scope domain.Scope, reservationID string, req dto.ConvertReservationRequest, actor domain.Actor) (*domain.ConversionResult, error) {
	args := m.Called(ctx, scope, reservationID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversionResult), args.Error(1)
}

var _ portssvc.FeeBalanceSvcFacade = (*MockFeeBalanceService)(nil)

// --- Mock ConcessionService ---
type MockConcessionService struct {
	mock.Mock
}

func (m *MockConcessionService) ApplyConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	args := m.Called(ctx, scope, key, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeBalance), args.Error(1)
}
func (m *MockConcessionService) LockConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionLockRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	args := m.Called(ctx, scope, key, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeBalance), args.Error(1)
}
func (m *MockConcessionService) UnlockConcession(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.ConcessionLockRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	args := m.Called(ctx, scope, key, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeBalance), args.Error(1)
}
func (m *MockConcessionService) ListConcessionEvents(ctx context.Context, scope domain.Scope, key domain.BalanceKey) ([]domain.ConcessionEvent, error) {
	args := m.Called(ctx, scope, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConcessionEvent), args.Error(1)
}

var _ portssvc.ConcessionSvcFacade = (*MockConcessionService)(nil)

// --- Mock PaymentService ---
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) PostPayment(ctx context.Context, scope domain.Scope, req dto.PostPaymentRequest, actor domain.Actor) (*domain.PostingResult, error) {
	args := m.Called(ctx, scope, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingResult), args.Error(1)
}
func (m *MockPaymentService) PostTermPayment(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.TermPaymentRequest, actor domain.Actor) (*domain.PostingResult, error) {
	args := m.Called(ctx, scope, key, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingResult), args.Error(1)
}
func (m *MockPaymentService) Refund(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.RefundRequest, actor domain.Actor) (*domain.PostingResult, error) {
	args := m.Called(ctx, scope, key, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingResult), args.Error(1)
}
func (m *MockPaymentService) ListPayments(ctx context.Context, scope domain.Scope, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	args := m.Called(ctx, scope, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListPaymentsResponse), args.Error(1)
}

var _ portssvc.PaymentSvcFacade = (*MockPaymentService)(nil)

// --- Mock BulkInitializerService ---
type MockBulkInitializerService struct {
	mock.Mock
}

func (m *MockBulkInitializerService) InitializeForCohort(ctx context.Context, scope domain.Scope, cohort domain.CohortFilter, actor domain.Actor) (*domain.BulkInitResult, error) {
	args := m.Called(ctx, scope, cohort, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BulkInitResult), args.Error(1)
}

var _ portssvc.BulkInitializerSvc = (*MockBulkInitializerService)(nil)

// --- Mock DashboardService ---
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Dashboard(ctx context.Context, scope domain.Scope, filter domain.DashboardFilter) (*domain.DashboardStats, error) {
	args := m.Called(ctx, scope, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

var _ portssvc.DashboardSvc = (*MockDashboardService)(nil)

// --- Mock FeeStructureService ---
type MockFeeStructureService struct {
	mock.Mock
}

func (m *MockFeeStructureService) Resolve(ctx context.Context, scope domain.Scope, query domain.FeeStructureQuery) (*domain.FeeStructure, error) {
	args := m.Called(ctx, scope, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeStructure), args.Error(1)
}
func (m *MockFeeStructureService) TermPercents(kind domain.FeeKind) []decimal.Decimal {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]decimal.Decimal)
}

var _ portssvc.FeeStructureSvc = (*MockFeeStructureService)(nil)
