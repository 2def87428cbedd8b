package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestPurpose_Validate(t *testing.T) {
	tests := []struct {
		name    string
		purpose domain.Purpose
		wantErr bool
	}{
		{"tuition term", domain.TuitionTerm(2), false},
		{"tuition without hint", domain.TuitionTerm(0), false},
		{"transport term", domain.TransportTerm(1), false},
		{"book fee", domain.BookFee(), false},
		{"other with description", domain.OtherPurpose("lab coat"), false},
		{"other without description", domain.OtherPurpose("  "), true},
		{"negative term", domain.TuitionTerm(-1), true},
		{"book fee with term", domain.Purpose{Kind: domain.PurposeBookFee, Term: 1}, true},
		{"unknown kind", domain.Purpose{Kind: "HOSTEL"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.purpose.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPurpose_FeeKind(t *testing.T) {
	kind, ok := domain.TransportTerm(1).FeeKind()
	assert.True(t, ok)
	assert.Equal(t, domain.Transport, kind)

	_, ok = domain.ApplicationFee().FeeKind()
	assert.False(t, ok)
	assert.True(t, domain.ApplicationFee().TargetsReservation())
	assert.False(t, domain.OtherPurpose("x").TargetsReservation())

	assert.Equal(t, "TUITION_TERM(3)", domain.TuitionTerm(3).String())
	assert.Equal(t, "OTHER(uniform)", domain.OtherPurpose("uniform").String())
}

func TestPaymentEvent_SamePayload(t *testing.T) {
	enrollment := "enr_1"
	kind := domain.Tuition
	base := domain.PaymentEvent{
		PaymentID:      "pay_1",
		BranchID:       "branch_1",
		AcademicYearID: "ay_2025",
		EnrollmentID:   &enrollment,
		FeeKind:        &kind,
		Direction:      domain.DirectionPayment,
		Purpose:        domain.TuitionTerm(1),
		Method:         domain.MethodCash,
		Amount:         dec("8000"),
		IncomeDate:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}

	retry := base
	retry.PaymentID = "pay_2"
	retry.Amount = dec("8000.00")
	retry.IncomeDate = time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)
	assert.True(t, base.SamePayload(&retry), "identity, audit and time of day do not matter")

	different := base
	different.Amount = dec("8001")
	assert.False(t, base.SamePayload(&different))

	otherEnrollment := "enr_2"
	different = base
	different.EnrollmentID = &otherEnrollment
	assert.False(t, base.SamePayload(&different))

	different = base
	different.FeeKind = nil
	assert.False(t, base.SamePayload(&different))
}
