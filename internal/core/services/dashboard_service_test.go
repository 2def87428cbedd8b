package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/SscSPs/fee_ledger_app/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleStats() *domain.DashboardStats {
	return &domain.DashboardStats{
		Scope:            testScope,
		TotalActualFee:   dec("40000"),
		TotalConcession:  dec("5000"),
		TotalNetFee:      dec("35000"),
		TotalPaid:        dec("8000"),
		TotalOutstanding: dec("27000"),
		TotalOverpayment: dec("0"),
		RowCount:         2,
		TermStatusCounts: []domain.TermStatusCount{{Term: 1, Paid: 1, Pending: 1}},
		GeneratedAt:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDashboard_ComputesAndCaches(t *testing.T) {
	repo := new(MockDashboardRepository)
	cache := new(MockDashboardCache)
	svc := services.NewDashboardService(repo, cache, time.Minute)
	ctx := context.Background()
	filter := domain.DashboardFilter{}
	key := filter.CacheKey(testScope)

	cache.On("Get", ctx, key).Return(nil, false, nil).Once()
	repo.On("AggregateFeeBalances", mock.Anything, testScope, filter).Return(sampleStats(), nil).Once()
	cache.On("Set", mock.Anything, key, mock.AnythingOfType("[]uint8"), time.Minute).Return(nil).Once()

	stats, err := svc.Dashboard(ctx, testScope, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RowCount)
	assertDecimal(t, "27000", stats.TotalOutstanding, "outstanding")

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestDashboard_ServesFromCache(t *testing.T) {
	repo := new(MockDashboardRepository)
	cache := new(MockDashboardCache)
	svc := services.NewDashboardService(repo, cache, time.Minute)
	ctx := context.Background()
	filter := domain.DashboardFilter{}

	raw, err := json.Marshal(sampleStats())
	require.NoError(t, err)
	cache.On("Get", ctx, filter.CacheKey(testScope)).Return(raw, true, nil).Once()

	stats, err := svc.Dashboard(ctx, testScope, filter)
	require.NoError(t, err)
	assertDecimal(t, "35000", stats.TotalNetFee, "net fee")
	repo.AssertNotCalled(t, "AggregateFeeBalances", mock.Anything, mock.Anything, mock.Anything)
}

func TestDashboard_CacheErrorsFallBackToRepository(t *testing.T) {
	repo := new(MockDashboardRepository)
	cache := new(MockDashboardCache)
	svc := services.NewDashboardService(repo, cache, time.Minute)
	ctx := context.Background()
	filter := domain.DashboardFilter{}

	cache.On("Get", ctx, mock.Anything).Return(nil, false, errors.New("redis down")).Once()
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
	repo.On("AggregateFeeBalances", mock.Anything, testScope, filter).Return(sampleStats(), nil).Once()

	stats, err := svc.Dashboard(ctx, testScope, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RowCount)
}

func TestDashboard_WithoutCache(t *testing.T) {
	repo := new(MockDashboardRepository)
	svc := services.NewDashboardService(repo, nil, time.Minute)
	ctx := context.Background()
	kind := domain.Tuition
	filter := domain.DashboardFilter{FeeKind: &kind}

	repo.On("AggregateFeeBalances", mock.Anything, testScope, filter).Return(sampleStats(), nil).Twice()

	for i := 0; i < 2; i++ {
		_, err := svc.Dashboard(ctx, testScope, filter)
		require.NoError(t, err)
	}
	repo.AssertExpectations(t)
}

func TestDashboard_RepositoryFailure(t *testing.T) {
	repo := new(MockDashboardRepository)
	svc := services.NewDashboardService(repo, nil, 0)
	ctx := context.Background()

	repo.On("AggregateFeeBalances", mock.Anything, testScope, domain.DashboardFilter{}).
		Return(nil, apperrors.NewAppError(500, "aggregate", apperrors.ErrTransient)).Once()

	_, err := svc.Dashboard(ctx, testScope, domain.DashboardFilter{})
	assert.ErrorIs(t, err, apperrors.ErrStatsUnavailable)
}

func TestDashboard_InvalidScope(t *testing.T) {
	svc := services.NewDashboardService(new(MockDashboardRepository), nil, 0)
	_, err := svc.Dashboard(context.Background(), domain.Scope{BranchID: "b"}, domain.DashboardFilter{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// blockingDashboardRepo holds every aggregation until release is closed or the query context ends.
type blockingDashboardRepo struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (r *blockingDashboardRepo) AggregateFeeBalances(ctx context.Context, _ domain.Scope, _ domain.DashboardFilter) (*domain.DashboardStats, error) {
	r.calls.Add(1)
	r.once.Do(func() { close(r.started) })
	select {
	case <-r.release:
		return sampleStats(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestDashboard_FirstCallerCancellationDoesNotFailWaiters(t *testing.T) {
	repo := &blockingDashboardRepo{started: make(chan struct{}), release: make(chan struct{})}
	svc := services.NewDashboardService(repo, nil, 0)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Dashboard(firstCtx, testScope, domain.DashboardFilter{})
		firstErr <- err
	}()
	<-repo.started

	type outcome struct {
		stats *domain.DashboardStats
		err   error
	}
	second := make(chan outcome, 1)
	go func() {
		stats, err := svc.Dashboard(context.Background(), testScope, domain.DashboardFilter{})
		second <- outcome{stats, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(repo.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 2, got.stats.RowCount)
	assert.Equal(t, int32(1), repo.calls.Load())
}
