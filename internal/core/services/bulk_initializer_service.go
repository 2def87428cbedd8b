package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultBulkConcurrency = 8

// bulkInitializerService seeds the missing fee balance rows of a cohort.
type bulkInitializerService struct {
	BaseService
	enrollments portsrepo.EnrollmentReader
	balances    portsrepo.FeeBalanceRepositoryFacade
	resolver    portssvc.FeeStructureSvc
	concurrency int
}

// NewBulkInitializerService creates a new bulk initializer that works on at most concurrency enrollments at once.
func NewBulkInitializerService(repos portsrepo.RepositoryProvider, resolver portssvc.FeeStructureSvc, concurrency int, opts ...ServiceOption) portssvc.BulkInitializerSvc {
	if concurrency < 1 {
		concurrency = defaultBulkConcurrency
	}
	return &bulkInitializerService{
		BaseService: newBaseService(repos.TxManager, opts),
		enrollments: repos.EnrollmentRepo,
		balances:    repos.FeeBalanceRepo,
		resolver:    resolver,
		concurrency: concurrency,
	}
}

var _ portssvc.BulkInitializerSvc = (*bulkInitializerService)(nil)

// enrollmentOutcome is what happened to one enrollment of the cohort.
type enrollmentOutcome struct {
	created  int
	skipped  int
	failures []domain.BulkFailure
}

// isSystemic reports whether err should abort the whole batch rather than fail one enrollment.
func isSystemic(ctx context.Context, err error) bool {
	return errors.Is(err, apperrors.ErrTransient) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil
}

// InitializeForCohort creates every missing row of the cohort.
// Existing rows are never touched; an enrollment whose rows all exist is reported as skipped.
func (s *bulkInitializerService) InitializeForCohort(ctx context.Context, scope domain.Scope, cohort domain.CohortFilter, actor domain.Actor) (*domain.BulkInitResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := cohort.Validate(); err != nil {
		return nil, err
	}
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: actor is required", apperrors.ErrUnauthorized)
	}

	enrollments, err := s.enrollments.ListActiveEnrollments(ctx, scope, cohort)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.EnrollmentID
	}
	existing, err := s.balances.ListExistingFeeKinds(ctx, ids)
	if err != nil {
		return nil, err
	}

	outcomes := make([]enrollmentOutcome, len(enrollments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range enrollments {
		i := i
		e := &enrollments[i]
		g.Go(func() error {
			outcome, err := s.initEnrollment(gctx, scope, e, existing[e.EnrollmentID], actor)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.LogError(ctx, err, "Bulk initialization aborted",
			slog.String("class_id", cohort.ClassID),
			slog.Int("enrollments", len(enrollments)))
		return nil, err
	}

	result := &domain.BulkInitResult{
		TotalRequested:       len(enrollments),
		SkippedEnrollmentIDs: []string{},
		Failures:             []domain.BulkFailure{},
	}
	for i, o := range outcomes {
		switch {
		case o.created > 0:
			result.CreatedCount++
		case len(o.failures) == 0:
			result.SkippedEnrollmentIDs = append(result.SkippedEnrollmentIDs, enrollments[i].EnrollmentID)
		}
		result.Failures = append(result.Failures, o.failures...)
	}

	s.LogInfo(ctx, "Bulk initialization finished",
		slog.String("class_id", cohort.ClassID),
		slog.Int("total_requested", result.TotalRequested),
		slog.Int("created", result.CreatedCount),
		slog.Int("skipped", len(result.SkippedEnrollmentIDs)),
		slog.Int("failed", len(result.Failures)))
	return result, nil
}

// initEnrollment creates the missing rows of one enrollment. Only systemic failures are returned as errors.
func (s *bulkInitializerService) initEnrollment(ctx context.Context, scope domain.Scope, e *domain.Enrollment, existingKinds []domain.FeeKind, actor domain.Actor) (enrollmentOutcome, error) {
	var outcome enrollmentOutcome
	have := make(map[domain.FeeKind]bool, len(existingKinds))
	for _, k := range existingKinds {
		have[k] = true
	}

	var pending []domain.FeeKind
	for _, kind := range e.ApplicableFeeKinds() {
		if have[kind] {
			outcome.skipped++
			continue
		}
		pending = append(pending, kind)
	}
	if len(pending) == 0 {
		return outcome, nil
	}

	fail := func(kind domain.FeeKind, err error) {
		outcome.failures = append(outcome.failures, domain.BulkFailure{EnrollmentID: e.EnrollmentID, FeeKind: kind, Reason: err.Error()})
	}

	now := s.now()
	for _, kind := range pending {
		// Resolved per kind: a failed transport lookup leaves tuition unaffected.
		fs, err := s.resolver.Resolve(ctx, scope, structureQuery(e, kind == domain.Transport))
		if err != nil {
			if isSystemic(ctx, err) {
				return outcome, err
			}
			fail(kind, err)
			continue
		}
		split, ok := fs.For(kind)
		if !ok {
			fail(kind, fmt.Errorf("%w: no %s fee structure", apperrors.ErrNotFound, kind))
			continue
		}
		b, err := newBalanceForEnrollment(e, kind, split.Total, decimal.Zero, split.Percents, nil, actor, now)
		if err != nil {
			fail(kind, err)
			continue
		}

		err = s.inTx(ctx, func(tx pgx.Tx) error {
			return s.balances.CreateFeeBalanceInTx(ctx, tx, *b)
		})
		switch {
		case err == nil:
			outcome.created++
		case errors.Is(err, apperrors.ErrDuplicate):
			outcome.skipped++
		case isSystemic(ctx, err):
			return outcome, err
		default:
			fail(kind, err)
		}
	}
	return outcome, nil
}
