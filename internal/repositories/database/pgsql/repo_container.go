package pgsql

import (
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	masterDataRepo := newPgxMasterDataRepository(dbPool)

	return portsrepo.RepositoryProvider{
		TxManager:        &BaseRepository{Pool: dbPool},
		FeeBalanceRepo:   newPgxFeeBalanceRepository(dbPool),
		PaymentRepo:      newPgxPaymentRepository(dbPool),
		ConcessionRepo:   newPgxConcessionEventRepository(dbPool),
		EnrollmentRepo:   masterDataRepo,
		FeeStructureRepo: masterDataRepo,
		ReservationRepo:  newPgxReservationRepository(dbPool),
		DashboardRepo:    newPgxDashboardRepository(dbPool),
	}
}
