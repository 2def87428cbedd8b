package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxReservationRepository struct {
	BaseRepository
}

func newPgxReservationRepository(pool *pgxpool.Pool) portsrepo.ReservationRepository {
	return &PgxReservationRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.ReservationRepository = (*PgxReservationRepository)(nil)

const reservationQuery = `
	SELECT reservation_id, branch_id, academic_year_id, class_id, group_id, course_id,
	       application_fee, reservation_fee, tuition_actual, tuition_concession,
	       transport_actual, transport_concession, transport_route_id,
	       status, converted_enrollment_id, created_at
	FROM reservation_fee_snapshots
	WHERE reservation_id = $1`

func scanReservation(row pgx.Row) (*domain.ReservationFeeSnapshot, error) {
	var (
		s                                    domain.ReservationFeeSnapshot
		status                               string
		transportActual, transportConcession *decimal.Decimal
	)
	err := row.Scan(
		&s.ReservationID,
		&s.BranchID,
		&s.AcademicYearID,
		&s.ClassID,
		&s.GroupID,
		&s.CourseID,
		&s.ApplicationFee,
		&s.ReservationFee,
		&s.Tuition.ActualFee,
		&s.Tuition.Concession,
		&transportActual,
		&transportConcession,
		&s.TransportRouteID,
		&status,
		&s.ConvertedEnrollmentID,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = domain.ReservationStatus(status)
	if transportActual != nil {
		s.Transport = &domain.ProjectedFee{ActualFee: *transportActual, Concession: decimal.Zero}
		if transportConcession != nil {
			s.Transport.Concession = *transportConcession
		}
	}
	return &s, nil
}

// FindReservation retrieves a snapshot without locking.
func (r *PgxReservationRepository) FindReservation(ctx context.Context, reservationID string) (*domain.ReservationFeeSnapshot, error) {
	s, err := scanReservation(r.Pool.QueryRow(ctx, reservationQuery+`;`, reservationID))
	if err != nil {
		return nil, wrapQueryError(err, "failed to find reservation %s", reservationID)
	}
	return s, nil
}

// FindReservationForUpdate retrieves a snapshot and locks it until tx ends.
func (r *PgxReservationRepository) FindReservationForUpdate(ctx context.Context, tx pgx.Tx, reservationID string) (*domain.ReservationFeeSnapshot, error) {
	s, err := scanReservation(tx.QueryRow(ctx, reservationQuery+` FOR UPDATE;`, reservationID))
	if err != nil {
		return nil, wrapQueryError(err, "failed to lock reservation %s", reservationID)
	}
	return s, nil
}

// MarkReservationConvertedInTx links a snapshot to the enrollment it became.
// Re-marking with the same enrollment is a no-op.
func (r *PgxReservationRepository) MarkReservationConvertedInTx(ctx context.Context, tx pgx.Tx, reservationID, enrollmentID string) error {
	query := `
		UPDATE reservation_fee_snapshots
		SET status = 'CONVERTED', converted_enrollment_id = $2
		WHERE reservation_id = $1
		  AND (status = 'OPEN' OR (status = 'CONVERTED' AND converted_enrollment_id = $2));
	`
	cmdTag, err := tx.Exec(ctx, query, reservationID, enrollmentID)
	if err != nil {
		return wrapQueryError(err, "failed to mark reservation %s converted", reservationID)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: reservation %s is not open for conversion to %s", apperrors.ErrValidation, reservationID, enrollmentID)
	}
	return nil
}
