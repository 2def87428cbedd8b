package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock DashboardRepository ---
type MockDashboardRepository struct {
	mock.Mock
}

var _ portsrepo.DashboardRepository = (*MockDashboardRepository)(nil)

func (m *MockDashboardRepository) AggregateFeeBalances(ctx context.Context, scope domain.Scope, filter domain.DashboardFilter) (*domain.DashboardStats, error) {
	args := m.Called(ctx, scope, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

// --- Mock DashboardCache ---
type MockDashboardCache struct {
	mock.Mock
}

var _ portsrepo.DashboardCache = (*MockDashboardCache)(nil)

func (m *MockDashboardCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockDashboardCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// --- Mock FeeStructureReader ---
type MockFeeStructureReader struct {
	mock.Mock
}

var _ portsrepo.FeeStructureReader = (*MockFeeStructureReader)(nil)

func (m *MockFeeStructureReader) FindClassFeeStructure(ctx context.Context, scope domain.Scope, classID string, groupID, courseID *string) (*domain.ClassFeeStructure, error) {
	args := m.Called(ctx, scope, classID, groupID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClassFeeStructure), args.Error(1)
}

func (m *MockFeeStructureReader) FindTransportFeeStructure(ctx context.Context, scope domain.Scope, routeID, distanceSlabID string) (*domain.TransportFeeStructure, error) {
	args := m.Called(ctx, scope, routeID, distanceSlabID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransportFeeStructure), args.Error(1)
}

// --- Mock FeeStructureSvc ---
type MockFeeStructureSvc struct {
	mock.Mock
}

var _ portssvc.FeeStructureSvc = (*MockFeeStructureSvc)(nil)

func (m *MockFeeStructureSvc) Resolve(ctx context.Context, scope domain.Scope, query domain.FeeStructureQuery) (*domain.FeeStructure, error) {
	args := m.Called(ctx, scope, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureSvc) TermPercents(kind domain.FeeKind) []decimal.Decimal {
	args := m.Called(kind)
	return args.Get(0).([]decimal.Decimal)
}
