package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"golang.org/x/sync/singleflight"
)

// dashboardAggregateTimeout bounds a shared aggregation once it no longer follows any caller's context.
const dashboardAggregateTimeout = 30 * time.Second

// dashboardService aggregates ledger rows, coalescing identical concurrent requests.
type dashboardService struct {
	BaseService
	repo  portsrepo.DashboardRepository
	cache portsrepo.DashboardCache // optional
	ttl   time.Duration
	group singleflight.Group
}

// NewDashboardService creates a new aggregator. cache may be nil.
func NewDashboardService(repo portsrepo.DashboardRepository, cache portsrepo.DashboardCache, ttl time.Duration, opts ...ServiceOption) portssvc.DashboardSvc {
	return &dashboardService{
		BaseService: newBaseService(nil, opts),
		repo:        repo,
		cache:       cache,
		ttl:         ttl,
	}
}

var _ portssvc.DashboardSvc = (*dashboardService)(nil)

func (s *dashboardService) fromCache(ctx context.Context, key string) *domain.DashboardStats {
	if s.cache == nil || s.ttl <= 0 {
		return nil
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.LogDebug(ctx, "Dashboard cache read failed", slog.String("error", err.Error()))
		return nil
	}
	if !ok {
		return nil
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.LogDebug(ctx, "Dashboard cache entry unreadable", slog.String("error", err.Error()))
		return nil
	}
	return &stats
}

func (s *dashboardService) toCache(ctx context.Context, key string, stats *domain.DashboardStats) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err == nil {
		err = s.cache.Set(ctx, key, raw, s.ttl)
	}
	if err != nil {
		s.LogDebug(ctx, "Dashboard cache write failed", slog.String("error", err.Error()))
	}
}

// Dashboard aggregates the rows in scope from one consistent snapshot. Partial results are never returned.
func (s *dashboardService) Dashboard(ctx context.Context, scope domain.Scope, filter domain.DashboardFilter) (*domain.DashboardStats, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	key := filter.CacheKey(scope)
	if stats := s.fromCache(ctx, key); stats != nil {
		return stats, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		// Detached from the caller that started it; waiters that join later share the result.
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dashboardAggregateTimeout)
		defer cancel()
		stats, err := s.repo.AggregateFeeBalances(actx, scope, filter)
		if err != nil {
			return nil, err
		}
		s.toCache(actx, key, stats)
		return stats, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		s.LogError(ctx, res.Err, "Failed to aggregate dashboard", slog.String("key", key))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStatsUnavailable, res.Err)
	}
	return res.Val.(*domain.DashboardStats), nil
}
