package services

import (
	"context"
	"fmt"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// feeStructureService resolves nominal fees from master data and the configured term splits.
type feeStructureService struct {
	BaseService
	repo           portsrepo.FeeStructureReader
	tuitionSplit   []decimal.Decimal
	transportSplit []decimal.Decimal
}

// NewFeeStructureService creates a resolver. The splits must already be validated.
func NewFeeStructureService(repo portsrepo.FeeStructureReader, tuitionSplit, transportSplit []decimal.Decimal) portssvc.FeeStructureSvc {
	return &feeStructureService{
		repo:           repo,
		tuitionSplit:   tuitionSplit,
		transportSplit: transportSplit,
	}
}

var _ portssvc.FeeStructureSvc = (*feeStructureService)(nil)

// TermPercents returns a copy of the configured split for a fee kind.
func (s *feeStructureService) TermPercents(kind domain.FeeKind) []decimal.Decimal {
	src := s.tuitionSplit
	if kind == domain.Transport {
		src = s.transportSplit
	}
	return append([]decimal.Decimal(nil), src...)
}

func (s *feeStructureService) split(total decimal.Decimal, kind domain.FeeKind) (domain.TermSplit, error) {
	percents := s.TermPercents(kind)
	amounts, err := accounting.SplitByPercentages(total, percents)
	if err != nil {
		return domain.TermSplit{}, fmt.Errorf("%w: %s split: %v", apperrors.ErrValidation, kind, err)
	}
	return domain.TermSplit{Total: total, Percents: percents, Amounts: amounts}, nil
}

// Resolve produces the tuition and (optionally) transport figures for a placement.
func (s *feeStructureService) Resolve(ctx context.Context, scope domain.Scope, query domain.FeeStructureQuery) (*domain.FeeStructure, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	class, err := s.repo.FindClassFeeStructure(ctx, scope, query.ClassID, query.GroupID, query.CourseID)
	if err != nil {
		return nil, fmt.Errorf("resolve tuition for class %s: %w", query.ClassID, err)
	}
	tuition, err := s.split(class.TuitionFee, domain.Tuition)
	if err != nil {
		return nil, err
	}

	result := &domain.FeeStructure{
		Query:   query,
		Tuition: tuition,
		BookFee: class.BookFee,
	}

	if query.RouteID != nil {
		transport, err := s.repo.FindTransportFeeStructure(ctx, scope, *query.RouteID, *query.DistanceSlabID)
		if err != nil {
			return nil, fmt.Errorf("resolve transport for route %s: %w", *query.RouteID, err)
		}
		split, err := s.split(transport.Fee, domain.Transport)
		if err != nil {
			return nil, err
		}
		result.Transport = &split
	}

	s.LogDebug(ctx, "Resolved fee structure",
		"class_id", query.ClassID,
		"tuition_total", tuition.Total.String(),
		"has_transport", result.Transport != nil)
	return result, nil
}
