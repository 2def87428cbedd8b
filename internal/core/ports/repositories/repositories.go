package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	TxManager        TransactionManager
	FeeBalanceRepo   FeeBalanceRepositoryFacade
	PaymentRepo      PaymentRepositoryFacade
	ConcessionRepo   ConcessionEventRepository
	EnrollmentRepo   EnrollmentReader
	FeeStructureRepo FeeStructureReader
	ReservationRepo  ReservationRepository
	DashboardRepo    DashboardRepository
}
