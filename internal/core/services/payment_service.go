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
	"github.com/SscSPs/fee_ledger_app/internal/utils/accounting"
	"github.com/SscSPs/fee_ledger_app/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	defaultPaymentsLimit = 50
	maxPaymentsLimit     = 200
)

// paymentService posts payments and refunds and applies them to fee balance rows.
type paymentService struct {
	balanceMutator
	payments     portsrepo.PaymentRepositoryFacade
	reservations portsrepo.ReservationRepository
}

// NewPaymentService creates a new payment poster.
func NewPaymentService(repos portsrepo.RepositoryProvider, opts ...ServiceOption) portssvc.PaymentSvcFacade {
	return &paymentService{
		balanceMutator: balanceMutator{BaseService: newBaseService(repos.TxManager, opts), balances: repos.FeeBalanceRepo},
		payments:       repos.PaymentRepo,
		reservations:   repos.ReservationRepo,
	}
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// posting is a validated payment or refund waiting to be written.
type posting struct {
	event        domain.PaymentEvent
	key          *domain.BalanceKey // nil when no balance row is touched
	explicitDate bool
}

func (s *paymentService) newPosting(scope domain.Scope, direction domain.PaymentDirection, purpose domain.Purpose, method domain.PaymentMethod,
	amount decimal.Decimal, incomeDate *time.Time, idempotencyKey, reference, notes *string, actor domain.Actor) (*posting, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: actor is required", apperrors.ErrUnauthorized)
	}
	if err := purpose.Validate(); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", apperrors.ErrValidation, method)
	}
	if !amount.IsPositive() || !amount.Equal(accounting.RoundMoney(amount)) {
		return nil, fmt.Errorf("%w: amount %s must be positive with at most 2 decimals", apperrors.ErrInvalidAmount, amount)
	}
	if idempotencyKey != nil && *idempotencyKey == "" {
		idempotencyKey = nil
	}

	now := s.now()
	p := &posting{
		event: domain.PaymentEvent{
			PaymentID:      uuid.NewString(),
			BranchID:       scope.BranchID,
			AcademicYearID: scope.AcademicYearID,
			Direction:      direction,
			Purpose:        purpose,
			Method:         method,
			Amount:         amount,
			IncomeDate:     time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			IdempotencyKey: idempotencyKey,
			Reference:      reference,
			Notes:          notes,
			CreatedAt:      now,
			CreatedBy:      actor.UserID,
		},
	}
	if incomeDate != nil {
		d := incomeDate.UTC()
		p.event.IncomeDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		p.explicitDate = true
	}
	return p, nil
}

// targetBalance points the posting at a fee balance row.
func (p *posting) targetBalance(key domain.BalanceKey) {
	enrollmentID, kind := key.EnrollmentID, key.FeeKind
	p.event.EnrollmentID = &enrollmentID
	p.event.FeeKind = &kind
	p.key = &key
}

// replay answers a retried request from the event already stored under its idempotency key.
func (s *paymentService) replay(ctx context.Context, p *posting, existing *domain.PaymentEvent) (*domain.PostingResult, error) {
	candidate := p.event
	if !p.explicitDate {
		candidate.IncomeDate = existing.IncomeDate
	}
	if !existing.SamePayload(&candidate) {
		return nil, fmt.Errorf("%w: key %q", apperrors.ErrIdempotencyKeyReuse, *p.event.IdempotencyKey)
	}

	result := &domain.PostingResult{Payment: *existing, Allocations: existing.Allocations, Replayed: true}
	if p.key != nil {
		b, err := s.balances.FindFeeBalance(ctx, *p.key)
		if err != nil {
			return nil, err
		}
		result.Balance = b
	}
	s.LogInfo(ctx, "Replayed idempotent posting",
		slog.String("payment_id", existing.PaymentID),
		slog.String("idempotency_key", *existing.IdempotencyKey))
	return result, nil
}

func (p *posting) scope() domain.Scope {
	return domain.Scope{BranchID: p.event.BranchID, AcademicYearID: p.event.AcademicYearID}
}

// findReplay looks up a stored event for the posting's idempotency key, if it has one.
func (s *paymentService) findReplay(ctx context.Context, p *posting) (*domain.PaymentEvent, error) {
	if p.event.IdempotencyKey == nil {
		return nil, nil
	}
	existing, err := s.payments.FindPaymentByIdempotencyKey(ctx, p.scope(), *p.event.IdempotencyKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return existing, err
}

// post writes the posting, applying apply to its row when it targets one.
func (s *paymentService) post(ctx context.Context, op string, p *posting, actor domain.Actor,
	apply func(b *domain.FeeBalance) ([]domain.Allocation, error)) (*domain.PostingResult, error) {
	existing, err := s.findReplay(ctx, p)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.replay(ctx, p, existing)
	}

	result := &domain.PostingResult{}
	if p.key == nil {
		err = s.inTx(ctx, func(tx pgx.Tx) error {
			return s.payments.SavePaymentInTx(ctx, tx, p.event)
		})
	} else {
		result.Balance, err = s.mutate(ctx, op, p.scope(), *p.key, actor, func(tx pgx.Tx, b *domain.FeeBalance) (bool, error) {
			allocations, err := apply(b)
			if err != nil {
				return false, err
			}
			p.event.Allocations = allocations
			return true, s.payments.SavePaymentInTx(ctx, tx, p.event)
		})
	}

	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) && p.event.IdempotencyKey != nil {
			// A concurrent request with the same key won the unique index.
			stored, findErr := s.payments.FindPaymentByIdempotencyKey(ctx, p.scope(), *p.event.IdempotencyKey)
			if findErr != nil {
				return nil, findErr
			}
			return s.replay(ctx, p, stored)
		}
		return nil, err
	}

	result.Payment = p.event
	result.Allocations = p.event.Allocations
	return result, nil
}

// PostPayment records a payment and applies it to the row its purpose targets, if any.
func (s *paymentService) PostPayment(ctx context.Context, scope domain.Scope, req dto.PostPaymentRequest, actor domain.Actor) (*domain.PostingResult, error) {
	purpose := req.Purpose.ToDomain()
	p, err := s.newPosting(scope, domain.DirectionPayment, purpose, req.PaymentMethod, req.Amount,
		req.IncomeDate, req.IdempotencyKey, req.Reference, req.Notes, actor)
	if err != nil {
		return nil, err
	}

	kind, touchesBalance := purpose.FeeKind()
	switch {
	case touchesBalance:
		if req.EnrollmentID == nil || *req.EnrollmentID == "" {
			return nil, fmt.Errorf("%w: %s payment requires an enrollment", apperrors.ErrValidation, purpose.Kind)
		}
		if req.ReservationID != nil {
			return nil, fmt.Errorf("%w: %s payment cannot target a reservation", apperrors.ErrValidation, purpose.Kind)
		}
		p.targetBalance(domain.BalanceKey{EnrollmentID: *req.EnrollmentID, FeeKind: kind})
	case purpose.TargetsReservation():
		if req.ReservationID == nil || *req.ReservationID == "" {
			return nil, fmt.Errorf("%w: %s payment requires a reservation", apperrors.ErrValidation, purpose.Kind)
		}
		if req.EnrollmentID != nil {
			return nil, fmt.Errorf("%w: %s payment cannot target an enrollment", apperrors.ErrValidation, purpose.Kind)
		}
		snap, err := s.reservations.FindReservation(ctx, *req.ReservationID)
		if err != nil {
			return nil, err
		}
		if !snap.InScope(scope) {
			return nil, fmt.Errorf("%w: reservation %s", apperrors.ErrNotFound, *req.ReservationID)
		}
		if snap.Status == domain.ReservationCancelled {
			return nil, fmt.Errorf("%w: reservation %s is cancelled", apperrors.ErrValidation, *req.ReservationID)
		}
		p.event.ReservationID = req.ReservationID
	default:
		if req.EnrollmentID != nil && req.ReservationID != nil {
			return nil, fmt.Errorf("%w: a payment targets an enrollment or a reservation, not both", apperrors.ErrValidation)
		}
		p.event.EnrollmentID = req.EnrollmentID
		p.event.ReservationID = req.ReservationID
	}

	result, err := s.post(ctx, "post_payment", p, actor, func(b *domain.FeeBalance) ([]domain.Allocation, error) {
		return b.ApplyPayment(p.event.Amount, purpose.Term)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to post payment",
			slog.String("purpose", purpose.String()),
			slog.String("amount", req.Amount.String()))
		return nil, err
	}
	if !result.Replayed {
		s.LogInfo(ctx, "Payment posted",
			slog.String("payment_id", result.Payment.PaymentID),
			slog.String("purpose", purpose.String()),
			slog.String("amount", result.Payment.Amount.String()),
			slog.Int("allocations", len(result.Allocations)))
	}
	return result, nil
}

// termPurpose returns the term purpose of a fee kind.
func termPurpose(kind domain.FeeKind, term int) domain.Purpose {
	if kind == domain.Transport {
		return domain.TransportTerm(term)
	}
	return domain.TuitionTerm(term)
}

// PostTermPayment posts a payment against one row with an optional term hint.
func (s *paymentService) PostTermPayment(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.TermPaymentRequest, actor domain.Actor) (*domain.PostingResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	purpose := termPurpose(key.FeeKind, req.Term)
	enrollmentID := key.EnrollmentID
	return s.PostPayment(ctx, scope, dto.PostPaymentRequest{
		EnrollmentID:   &enrollmentID,
		Purpose:        dto.PurposeRequest{Kind: string(purpose.Kind), Term: purpose.Term},
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		IncomeDate:     req.IncomeDate,
		IdempotencyKey: req.IdempotencyKey,
		Reference:      req.Reference,
		Notes:          req.Notes,
	}, actor)
}

// Refund returns money held against a row: overpayment first, then the latest terms.
func (s *paymentService) Refund(ctx context.Context, scope domain.Scope, key domain.BalanceKey, req dto.RefundRequest, actor domain.Actor) (*domain.PostingResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	p, err := s.newPosting(scope, domain.DirectionRefund, termPurpose(key.FeeKind, 0), req.PaymentMethod, req.Amount,
		req.IncomeDate, req.IdempotencyKey, req.Reference, req.Notes, actor)
	if err != nil {
		return nil, err
	}
	p.targetBalance(key)

	result, err := s.post(ctx, "refund", p, actor, func(b *domain.FeeBalance) ([]domain.Allocation, error) {
		return b.Refund(p.event.Amount)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to refund",
			slog.String("balance", key.String()),
			slog.String("amount", req.Amount.String()))
		return nil, err
	}
	if !result.Replayed {
		s.LogInfo(ctx, "Refund posted",
			slog.String("payment_id", result.Payment.PaymentID),
			slog.String("balance", key.String()),
			slog.String("amount", result.Payment.Amount.String()))
	}
	return result, nil
}

// ListPayments retrieves a page of payment events, newest first.
func (s *paymentService) ListPayments(ctx context.Context, scope domain.Scope, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultPaymentsLimit
	}
	if limit > maxPaymentsLimit {
		limit = maxPaymentsLimit
	}

	filter := domain.PaymentFilter{
		EnrollmentID:  params.EnrollmentID,
		ReservationID: params.ReservationID,
		From:          params.From,
		To:            params.To,
		Limit:         limit + 1, // one extra row tells us whether another page exists
	}
	if params.FeeKind != nil {
		kind, err := domain.ParseFeeKind(*params.FeeKind)
		if err != nil {
			return nil, err
		}
		filter.FeeKind = &kind
	}
	if params.Direction != nil {
		direction := domain.PaymentDirection(*params.Direction)
		filter.Direction = &direction
	}
	if params.NextToken != nil && *params.NextToken != "" {
		createdAt, id, err := pagination.DecodeToken(*params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, err)
		}
		filter.AfterCreatedAt = &createdAt
		filter.AfterID = &id
	}

	payments, err := s.payments.ListPayments(ctx, scope, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payments", slog.String("branch_id", scope.BranchID))
		return nil, err
	}

	resp := &dto.ListPaymentsResponse{Payments: make([]dto.PaymentResponse, 0, limit)}
	if len(payments) > limit {
		last := payments[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.PaymentID)
		resp.NextToken = &token
		payments = payments[:limit]
	}
	for i := range payments {
		resp.Payments = append(resp.Payments, dto.ToPaymentResponse(&payments[i]))
	}
	return resp, nil
}
