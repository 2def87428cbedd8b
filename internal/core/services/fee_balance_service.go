package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/dto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// feeBalanceService creates, reads and cancels fee balance rows.
type feeBalanceService struct {
	balanceMutator
	enrollments  portsrepo.EnrollmentReader
	reservations portsrepo.ReservationRepository
	events       portsrepo.ConcessionEventRepository
	resolver     portssvc.FeeStructureSvc
}

// NewFeeBalanceService creates a new fee balance ledger service.
func NewFeeBalanceService(repos portsrepo.RepositoryProvider, resolver portssvc.FeeStructureSvc, opts ...ServiceOption) portssvc.FeeBalanceSvcFacade {
	return &feeBalanceService{
		balanceMutator: balanceMutator{BaseService: newBaseService(repos.TxManager, opts), balances: repos.FeeBalanceRepo},
		enrollments:    repos.EnrollmentRepo,
		reservations:   repos.ReservationRepo,
		events:         repos.ConcessionRepo,
		resolver:       resolver,
	}
}

var _ portssvc.FeeBalanceSvcFacade = (*feeBalanceService)(nil)

// newBalanceForEnrollment builds the initial row of one fee kind for an enrollment.
func newBalanceForEnrollment(e *domain.Enrollment, kind domain.FeeKind, actual, concession decimal.Decimal, percents []decimal.Decimal, sourceReservationID *string, actor domain.Actor, now time.Time) (*domain.FeeBalance, error) {
	var routeID *string
	if kind == domain.Transport && e.Transport != nil {
		route := e.Transport.RouteID
		routeID = &route
	}
	b, err := domain.NewFeeBalance(domain.NewFeeBalanceParams{
		BalanceID:           uuid.NewString(),
		EnrollmentID:        e.EnrollmentID,
		FeeKind:             kind,
		Scope:               domain.Scope{BranchID: e.BranchID, AcademicYearID: e.AcademicYearID},
		ClassID:             e.ClassID,
		GroupID:             e.GroupID,
		CourseID:            e.CourseID,
		RouteID:             routeID,
		ActualFee:           actual,
		Concession:          concession,
		TermPercents:        percents,
		SourceReservationID: sourceReservationID,
		CreatedBy:           actor.UserID,
		Now:                 now,
	})
	if err != nil {
		return nil, err
	}
	if err := b.CheckInvariants(); err != nil {
		return nil, err
	}
	return b, nil
}

// structureQuery builds the resolver query for the given fee kinds of an enrollment.
// Transport master data is only looked up when a transport row is wanted.
func structureQuery(e *domain.Enrollment, withTransport bool) domain.FeeStructureQuery {
	q := e.FeeStructureQuery()
	if !withTransport {
		q.RouteID = nil
		q.DistanceSlabID = nil
	}
	return q
}

// initialConcessionEvent audits a concession granted at creation time.
func initialConcessionEvent(b *domain.FeeBalance, actor domain.Actor) domain.ConcessionEvent {
	return domain.ConcessionEvent{
		EventID:        uuid.NewString(),
		EnrollmentID:   b.EnrollmentID,
		FeeKind:        b.FeeKind,
		Action:         domain.ConcessionApply,
		PreviousAmount: decimal.Zero,
		NewAmount:      b.ConcessionAmount,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		CreatedAt:      b.CreatedAt,
	}
}

func (s *feeBalanceService) loadEnrollment(ctx context.Context, scope domain.Scope, enrollmentID string) (*domain.Enrollment, error) {
	e, err := s.enrollments.FindEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e.BranchID != scope.BranchID || e.AcademicYearID != scope.AcademicYearID {
		return nil, fmt.Errorf("%w: enrollment %s", apperrors.ErrNotFound, enrollmentID)
	}
	if !e.IsActive {
		return nil, fmt.Errorf("%w: enrollment %s is not active", apperrors.ErrValidation, enrollmentID)
	}
	return e, nil
}

// insertBalance writes a new row and, when it starts with a concession, its audit event.
func (s *feeBalanceService) insertBalance(ctx context.Context, tx pgx.Tx, b *domain.FeeBalance, actor domain.Actor) error {
	if err := s.balances.CreateFeeBalanceInTx(ctx, tx, *b); err != nil {
		return err
	}
	if b.ConcessionAmount.IsPositive() {
		if err := s.events.SaveConcessionEventInTx(ctx, tx, initialConcessionEvent(b, actor)); err != nil {
			return err
		}
	}
	return nil
}

// GetFeeBalance retrieves one row. Rows outside scope are reported as not found.
func (s *feeBalanceService) GetFeeBalance(ctx context.Context, scope domain.Scope, key domain.BalanceKey) (*domain.FeeBalance, error) {
	if err := validateRequest(scope, key); err != nil {
		return nil, err
	}
	b, err := s.balances.FindFeeBalance(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := checkScope(scope, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListFeeBalances retrieves the rows of a scope matching the filter.
func (s *feeBalanceService) ListFeeBalances(ctx context.Context, scope domain.Scope, filter domain.BalanceFilter) ([]domain.FeeBalance, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	balances, err := s.balances.ListFeeBalances(ctx, scope, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list fee balances", slog.String("branch_id", scope.BranchID))
		return nil, err
	}
	return balances, nil
}

// CreateFeeBalance resolves an enrollment's fees and inserts its row.
func (s *feeBalanceService) CreateFeeBalance(ctx context.Context, scope domain.Scope, req dto.CreateFeeBalanceRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	key := domain.BalanceKey{EnrollmentID: req.EnrollmentID, FeeKind: req.FeeKind}
	if err := validateRequest(scope, key); err != nil {
		return nil, err
	}
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: actor is required", apperrors.ErrUnauthorized)
	}

	e, err := s.loadEnrollment(ctx, scope, req.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if req.FeeKind == domain.Transport && e.Transport == nil {
		return nil, apperrors.NewLedgerError(apperrors.ErrValidation, e.EnrollmentID, string(domain.Transport),
			"transport_assignment", "enrollment has no active transport assignment")
	}

	fs, err := s.resolver.Resolve(ctx, scope, structureQuery(e, req.FeeKind == domain.Transport))
	if err != nil {
		return nil, err
	}
	split, ok := fs.For(req.FeeKind)
	if !ok {
		return nil, fmt.Errorf("%w: no %s fee structure for enrollment %s", apperrors.ErrNotFound, req.FeeKind, e.EnrollmentID)
	}

	concession := decimal.Zero
	if req.Concession != nil {
		concession = *req.Concession
	}
	b, err := newBalanceForEnrollment(e, req.FeeKind, split.Total, concession, split.Percents, nil, actor, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.inTx(ctx, func(tx pgx.Tx) error {
		return s.insertBalance(ctx, tx, b, actor)
	}); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to create fee balance", slog.String("balance", key.String()))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Fee balance created",
		slog.String("balance", key.String()),
		slog.String("total_fee", b.TotalFee.String()))
	return b, nil
}

// CancelFeeBalance moves a row to its terminal state.
func (s *feeBalanceService) CancelFeeBalance(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.CancelFeeBalanceRequest, actor domain.Actor) (*domain.FeeBalance, error) {
	b, err := s.mutate(ctx, "cancel_fee_balance", scope, key, actor, func(_ pgx.Tx, b *domain.FeeBalance) (bool, error) {
		return true, b.Cancel()
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Fee balance cancelled",
		slog.String("balance", key.String()),
		slog.String("reason", req.Reason),
		slog.String("overpayment_held", b.OverpaymentBalance.String()))
	return b, nil
}

// ConvertReservation seeds an enrollment's rows from the fees agreed at reservation time.
// Converting again for the same enrollment creates only the rows that are still missing.
func (s *feeBalanceService) ConvertReservation(ctx context.Context, scope domain.Scope, reservationID string, req dto.ConvertReservationRequest, actor domain.Actor) (*domain.ConversionResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if reservationID == "" {
		return nil, fmt.Errorf("%w: reservation ID is required", apperrors.ErrValidation)
	}
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: actor is required", apperrors.ErrUnauthorized)
	}

	e, err := s.loadEnrollment(ctx, scope, req.EnrollmentID)
	if err != nil {
		return nil, err
	}

	var result *domain.ConversionResult
	err = s.withConflictRetry(ctx, "convert_reservation", func() error {
		existing, err := s.balances.ListExistingFeeKinds(ctx, []string{e.EnrollmentID})
		if err != nil {
			return err
		}
		have := make(map[domain.FeeKind]bool)
		for _, k := range existing[e.EnrollmentID] {
			have[k] = true
		}

		return s.inTx(ctx, func(tx pgx.Tx) error {
			snap, err := s.reservations.FindReservationForUpdate(ctx, tx, reservationID)
			if err != nil {
				return err
			}
			if !snap.InScope(scope) {
				return fmt.Errorf("%w: reservation %s", apperrors.ErrNotFound, reservationID)
			}
			switch {
			case snap.Status == domain.ReservationCancelled:
				return fmt.Errorf("%w: reservation %s is cancelled", apperrors.ErrValidation, reservationID)
			case snap.Status == domain.ReservationConverted && (snap.ConvertedEnrollmentID == nil || *snap.ConvertedEnrollmentID != e.EnrollmentID):
				return fmt.Errorf("%w: reservation %s was converted to another enrollment", apperrors.ErrValidation, reservationID)
			}
			if !snap.MatchesPlacement(e) {
				return apperrors.NewLedgerError(apperrors.ErrValidation, e.EnrollmentID, "", "placement",
					fmt.Sprintf("reservation %s was made for class %s, enrollment is in class %s", reservationID, snap.ClassID, e.ClassID))
			}

			res := &domain.ConversionResult{ReservationID: reservationID, EnrollmentID: e.EnrollmentID}
			now := s.now()
			for _, kind := range domain.FeeKinds {
				projected, ok := snap.Projected(kind)
				if !ok {
					continue
				}
				if have[kind] {
					res.SkippedKinds = append(res.SkippedKinds, kind)
					continue
				}
				b, err := newBalanceForEnrollment(e, kind, projected.ActualFee, projected.Concession,
					s.resolver.TermPercents(kind), &snap.ReservationID, actor, now)
				if err != nil {
					return err
				}
				if kind == domain.Transport && b.RouteID == nil {
					b.RouteID = snap.TransportRouteID
				}
				if err := s.insertBalance(ctx, tx, b, actor); err != nil {
					if errors.Is(err, apperrors.ErrDuplicate) {
						// Created concurrently; re-run to pick it up as skipped.
						return fmt.Errorf("%w: %v", apperrors.ErrConflict, err)
					}
					return err
				}
				res.Balances = append(res.Balances, b)
			}

			if snap.Status == domain.ReservationOpen {
				if err := s.reservations.MarkReservationConvertedInTx(ctx, tx, reservationID, e.EnrollmentID); err != nil {
					return err
				}
			}
			result = res
			return nil
		})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to convert reservation",
			slog.String("reservation_id", reservationID),
			slog.String("enrollment_id", req.EnrollmentID))
		return nil, err
	}

	s.LogInfo(ctx, "Reservation converted",
		slog.String("reservation_id", reservationID),
		slog.String("enrollment_id", e.EnrollmentID),
		slog.Int("created", len(result.Balances)),
		slog.Int("skipped", len(result.SkippedKinds)))
	return result, nil
}
