package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeBalanceMapping_DerivesTermBalances(t *testing.T) {
	b, err := domain.NewFeeBalance(domain.NewFeeBalanceParams{
		BalanceID:    "bal_1",
		EnrollmentID: "enr_1",
		FeeKind:      domain.Transport,
		Scope:        domain.Scope{BranchID: "b1", AcademicYearID: "y1"},
		ClassID:      "c1",
		ActualFee:    decimal.NewFromInt(7000),
		TermPercents: []decimal.Decimal{decimal.NewFromInt(50), decimal.NewFromInt(50)},
		Now:          time.Now(),
	})
	require.NoError(t, err)
	_, err = b.ApplyPayment(decimal.NewFromInt(4000), 0)
	require.NoError(t, err)

	row, terms := ToModelFeeBalance(*b)
	assert.Equal(t, "TRANSPORT", row.FeeKind)
	require.Len(t, terms, 2)
	assert.Equal(t, "PARTIAL", terms[1].Status)

	back := ToDomainFeeBalance(row, terms)
	require.NoError(t, back.CheckInvariants())
	assert.True(t, back.Terms[1].Balance.Equal(decimal.NewFromInt(3000)))
}

func TestPaymentMapping_KeepsPurposeVariant(t *testing.T) {
	kind := domain.Tuition
	enr := "enr_1"
	p := domain.PaymentEvent{
		PaymentID:    "pay_1",
		EnrollmentID: &enr,
		FeeKind:      &kind,
		Purpose:      domain.OtherPurpose("uniform"),
		Allocations: []domain.Allocation{
			{Bucket: domain.BucketTerm, Term: 2, Amount: decimal.NewFromInt(10)},
			{Bucket: domain.BucketOverpayment, Amount: decimal.NewFromInt(5)},
		},
	}

	row, allocs := ToModelPayment(p)
	require.NotNil(t, row.PurposeDescription)
	assert.Nil(t, allocs[1].Term)
	assert.Equal(t, 2, allocs[1].Seq)

	back := ToDomainPayment(row, allocs)
	assert.Equal(t, p.Purpose, back.Purpose)
	assert.Equal(t, domain.Tuition, *back.FeeKind)
	assert.Equal(t, 2, back.Allocations[0].Term)
	assert.Equal(t, 0, back.Allocations[1].Term)
}

func TestAuditFieldsMapping_NormalizesToUTC(t *testing.T) {
	ist := time.FixedZone("IST", 5*60*60+30*60)
	created := time.Date(2025, 6, 1, 9, 30, 0, 0, ist)

	m := ToModelAuditFields(domain.AuditFields{
		CreatedAt:     created,
		CreatedBy:     "acc_1",
		LastUpdatedAt: created.Add(time.Hour),
		LastUpdatedBy: "acc_2",
		Version:       3,
	})
	assert.Equal(t, time.UTC, m.CreatedAt.Location())
	assert.Equal(t, "acc_1", m.CreatedBy)

	back := ToDomainAuditFields(m)
	assert.True(t, back.CreatedAt.Equal(created))
	assert.Equal(t, time.UTC, back.LastUpdatedAt.Location())
	assert.Equal(t, int64(3), back.Version)
}
