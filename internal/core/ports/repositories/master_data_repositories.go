package repositories

import (
	"context"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// EnrollmentReader provides read-only lookups into the enrollment subsystem's data
type EnrollmentReader interface {
	// FindEnrollment retrieves an enrollment with its active transport assignment, if any.
	FindEnrollment(ctx context.Context, enrollmentID string) (*domain.Enrollment, error)

	// ListActiveEnrollments retrieves the active enrollments of a cohort ordered by enrollment ID.
	ListActiveEnrollments(ctx context.Context, scope domain.Scope, cohort domain.CohortFilter) ([]domain.Enrollment, error)
}

// FeeStructureReader provides read-only lookups into fee master data
type FeeStructureReader interface {
	// FindClassFeeStructure retrieves the active tuition structure for a placement.
	FindClassFeeStructure(ctx context.Context, scope domain.Scope, classID string, groupID, courseID *string) (*domain.ClassFeeStructure, error)

	// FindTransportFeeStructure retrieves the active transport structure for a route and distance slab.
	FindTransportFeeStructure(ctx context.Context, scope domain.Scope, routeID, distanceSlabID string) (*domain.TransportFeeStructure, error)
}

// ReservationRepository reads reservation snapshots and records their conversion
type ReservationRepository interface {
	// FindReservationForUpdate retrieves a snapshot and locks it until tx ends.
	FindReservationForUpdate(ctx context.Context, tx pgx.Tx, reservationID string) (*domain.ReservationFeeSnapshot, error)

	// FindReservation retrieves a snapshot without locking.
	FindReservation(ctx context.Context, reservationID string) (*domain.ReservationFeeSnapshot, error)

	// MarkReservationConvertedInTx links a snapshot to the enrollment it became.
	MarkReservationConvertedInTx(ctx context.Context, tx pgx.Tx, reservationID, enrollmentID string) error
}

// DashboardRepository aggregates ledger rows for reporting
type DashboardRepository interface {
	// AggregateFeeBalances computes totals over one consistent snapshot of the rows in scope.
	AggregateFeeBalances(ctx context.Context, scope domain.Scope, filter domain.DashboardFilter) (*domain.DashboardStats, error)
}
