package mapping

import (
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/SscSPs/fee_ledger_app/internal/models"
)

// ToModelPayment splits a payment event into its table rows.
func ToModelPayment(d domain.PaymentEvent) (models.Payment, []models.PaymentAllocation) {
	m := models.Payment{
		PaymentID:      d.PaymentID,
		BranchID:       d.BranchID,
		AcademicYearID: d.AcademicYearID,
		EnrollmentID:   d.EnrollmentID,
		ReservationID:  d.ReservationID,
		Direction:      string(d.Direction),
		PurposeKind:    string(d.Purpose.Kind),
		PurposeTerm:    d.Purpose.Term,
		PaymentMethod:  string(d.Method),
		Amount:         d.Amount,
		IncomeDate:     d.IncomeDate,
		IdempotencyKey: d.IdempotencyKey,
		Reference:      d.Reference,
		Notes:          d.Notes,
		Creation:       ToModelCreation(d.CreatedAt, d.CreatedBy),
	}
	if d.FeeKind != nil {
		kind := string(*d.FeeKind)
		m.FeeKind = &kind
	}
	if d.Purpose.Description != "" {
		desc := d.Purpose.Description
		m.PurposeDescription = &desc
	}

	allocs := make([]models.PaymentAllocation, len(d.Allocations))
	for i, a := range d.Allocations {
		allocs[i] = models.PaymentAllocation{
			PaymentID: d.PaymentID,
			Seq:       i + 1,
			Bucket:    string(a.Bucket),
			Amount:    a.Amount,
		}
		if a.Bucket == domain.BucketTerm {
			term := a.Term
			allocs[i].Term = &term
		}
	}
	return m, allocs
}

// ToDomainPayment joins table rows back into a payment event.
func ToDomainPayment(m models.Payment, allocs []models.PaymentAllocation) domain.PaymentEvent {
	d := domain.PaymentEvent{
		PaymentID:      m.PaymentID,
		BranchID:       m.BranchID,
		AcademicYearID: m.AcademicYearID,
		EnrollmentID:   m.EnrollmentID,
		ReservationID:  m.ReservationID,
		Direction:      domain.PaymentDirection(m.Direction),
		Purpose:        domain.Purpose{Kind: domain.PurposeKind(m.PurposeKind), Term: m.PurposeTerm},
		Method:         domain.PaymentMethod(m.PaymentMethod),
		Amount:         m.Amount,
		IncomeDate:     m.IncomeDate,
		IdempotencyKey: m.IdempotencyKey,
		Reference:      m.Reference,
		Notes:          m.Notes,
		CreatedAt:      m.CreatedAt.UTC(),
		CreatedBy:      m.CreatedBy,
	}
	if m.FeeKind != nil {
		kind := domain.FeeKind(*m.FeeKind)
		d.FeeKind = &kind
	}
	if m.PurposeDescription != nil {
		d.Purpose.Description = *m.PurposeDescription
	}
	if len(allocs) > 0 {
		d.Allocations = make([]domain.Allocation, len(allocs))
		for i, a := range allocs {
			d.Allocations[i] = domain.Allocation{Bucket: domain.AllocationBucket(a.Bucket), Amount: a.Amount}
			if a.Term != nil {
				d.Allocations[i].Term = *a.Term
			}
		}
	}
	return d
}
