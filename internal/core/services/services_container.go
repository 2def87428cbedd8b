package services

import (
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// cache may be nil, in which case dashboards are always computed.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, cache portsrepo.DashboardCache) *portssvc.ServiceContainer {
	opts := []ServiceOption{WithRetryPolicy(cfg.ConflictRetryAttempts, cfg.ConflictRetryBackoff)}

	container := &portssvc.ServiceContainer{}

	// The resolver is shared by every service that creates rows
	container.FeeStructure = NewFeeStructureService(repos.FeeStructureRepo, cfg.TuitionTermSplit, cfg.TransportTermSplit)

	container.Concession = NewConcessionService(repos.TxManager, repos.FeeBalanceRepo, repos.ConcessionRepo, opts...)
	container.FeeBalance = NewFeeBalanceService(repos, container.FeeStructure, opts...)
	container.Payment = NewPaymentService(repos, opts...)
	container.Bulk = NewBulkInitializerService(repos, container.FeeStructure, cfg.BulkInitConcurrency, opts...)
	container.Dashboard = NewDashboardService(repos.DashboardRepo, cache, cfg.DashboardCacheTTL)

	return container
}
