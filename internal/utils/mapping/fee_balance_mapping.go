package mapping

import (
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/SscSPs/fee_ledger_app/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelFeeBalance splits a domain row into its table rows.
func ToModelFeeBalance(d domain.FeeBalance) (models.FeeBalance, []models.FeeBalanceTerm) {
	m := models.FeeBalance{
		BalanceID:           d.BalanceID,
		EnrollmentID:        d.EnrollmentID,
		FeeKind:             string(d.FeeKind),
		BranchID:            d.BranchID,
		AcademicYearID:      d.AcademicYearID,
		ClassID:             d.ClassID,
		GroupID:             d.GroupID,
		CourseID:            d.CourseID,
		RouteID:             d.RouteID,
		ActualFee:           d.ActualFee,
		ConcessionAmount:    d.ConcessionAmount,
		TotalFee:            d.TotalFee,
		OverallBalanceFee:   d.OverallBalanceFee,
		OverpaymentBalance:  d.OverpaymentBalance,
		ConcessionLocked:    d.ConcessionLocked,
		Status:              string(d.Status),
		SourceReservationID: d.SourceReservationID,
		AuditFields:         ToModelAuditFields(d.AuditFields),
	}
	terms := make([]models.FeeBalanceTerm, len(d.Terms))
	for i, t := range d.Terms {
		terms[i] = models.FeeBalanceTerm{
			EnrollmentID: d.EnrollmentID,
			FeeKind:      string(d.FeeKind),
			Term:         t.Term,
			Percent:      t.Percent,
			Amount:       t.Amount,
			Paid:         t.Paid,
			Status:       string(t.Status),
		}
	}
	return m, terms
}

// ToDomainFeeBalance joins table rows back into a domain row. Term balances are derived.
func ToDomainFeeBalance(m models.FeeBalance, terms []models.FeeBalanceTerm) domain.FeeBalance {
	d := domain.FeeBalance{
		BalanceID:           m.BalanceID,
		EnrollmentID:        m.EnrollmentID,
		FeeKind:             domain.FeeKind(m.FeeKind),
		BranchID:            m.BranchID,
		AcademicYearID:      m.AcademicYearID,
		ClassID:             m.ClassID,
		GroupID:             m.GroupID,
		CourseID:            m.CourseID,
		RouteID:             m.RouteID,
		ActualFee:           m.ActualFee,
		ConcessionAmount:    m.ConcessionAmount,
		TotalFee:            m.TotalFee,
		OverallBalanceFee:   m.OverallBalanceFee,
		OverpaymentBalance:  m.OverpaymentBalance,
		ConcessionLocked:    m.ConcessionLocked,
		Status:              domain.BalanceStatus(m.Status),
		SourceReservationID: m.SourceReservationID,
		AuditFields:         ToDomainAuditFields(m.AuditFields),
		Terms:               make([]domain.TermLine, len(terms)),
	}
	for i, t := range terms {
		d.Terms[i] = domain.TermLine{
			Term:    t.Term,
			Percent: t.Percent,
			Amount:  t.Amount,
			Paid:    t.Paid,
			Balance: decimal.Max(t.Amount.Sub(t.Paid), decimal.Zero),
			Status:  domain.TermStatus(t.Status),
		}
	}
	return d
}
