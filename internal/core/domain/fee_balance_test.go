package domain_test

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScope = domain.Scope{BranchID: "branch_1", AcademicYearID: "ay_2025"}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func percents(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func newTuition(t *testing.T, actual string) *domain.FeeBalance {
	t.Helper()
	b, err := domain.NewFeeBalance(domain.NewFeeBalanceParams{
		BalanceID:    "bal_1",
		EnrollmentID: "enr_1",
		FeeKind:      domain.Tuition,
		Scope:        testScope,
		ClassID:      "class_10",
		ActualFee:    dec(actual),
		Concession:   decimal.Zero,
		TermPercents: percents(40, 30, 30),
		CreatedBy:    "user_1",
		Now:          time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, b.CheckInvariants())
	return b
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, label ...string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s got %s", strings.Join(label, " "), want, got)
}

func assertTerm(t *testing.T, b *domain.FeeBalance, term int, amount, paid string, status domain.TermStatus) {
	t.Helper()
	line := b.Terms[term-1]
	assertDecimal(t, amount, line.Amount, "term", strconv.Itoa(term), "amount")
	assertDecimal(t, paid, line.Paid, "term", strconv.Itoa(term), "paid")
	assert.Equal(t, status, line.Status, "term %d status", term)
}

func TestNewFeeBalance_SplitsTerms(t *testing.T) {
	b := newTuition(t, "20000")

	assertDecimal(t, "20000", b.TotalFee)
	assertDecimal(t, "20000", b.OverallBalanceFee)
	assert.Equal(t, domain.BalanceActive, b.Status)
	assertTerm(t, b, 1, "8000", "0", domain.TermPending)
	assertTerm(t, b, 2, "6000", "0", domain.TermPending)
	assertTerm(t, b, 3, "6000", "0", domain.TermPending)
}

func TestNewFeeBalance_Rejects(t *testing.T) {
	base := domain.NewFeeBalanceParams{
		EnrollmentID: "enr_1",
		FeeKind:      domain.Tuition,
		Scope:        testScope,
		ActualFee:    dec("1000"),
		TermPercents: percents(50, 50),
	}

	tests := []struct {
		name    string
		mutate  func(p *domain.NewFeeBalanceParams)
		wantErr error
	}{
		{"negative actual fee", func(p *domain.NewFeeBalanceParams) { p.ActualFee = dec("-1") }, apperrors.ErrInvalidAmount},
		{"sub-cent actual fee", func(p *domain.NewFeeBalanceParams) { p.ActualFee = dec("10.001") }, apperrors.ErrInvalidAmount},
		{"concession above fee", func(p *domain.NewFeeBalanceParams) { p.Concession = dec("1000.01") }, apperrors.ErrInvalidConcession},
		{"bad split", func(p *domain.NewFeeBalanceParams) { p.TermPercents = percents(50, 40) }, apperrors.ErrValidation},
		{"unknown fee kind", func(p *domain.NewFeeBalanceParams) { p.FeeKind = "HOSTEL" }, apperrors.ErrValidation},
		{"missing scope", func(p *domain.NewFeeBalanceParams) { p.Scope = domain.Scope{} }, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			_, err := domain.NewFeeBalance(p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyPayment_TuitionPostingSequence(t *testing.T) {
	b := newTuition(t, "20000")

	allocs, err := b.ApplyPayment(dec("8000"), 0)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, 1, allocs[0].Term)
	assertTerm(t, b, 1, "8000", "8000", domain.TermPaid)
	assertTerm(t, b, 2, "6000", "0", domain.TermPending)
	assertTerm(t, b, 3, "6000", "0", domain.TermPending)
	assertDecimal(t, "12000", b.OverallBalanceFee)

	allocs, err = b.ApplyPayment(dec("10000"), 0)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assertTerm(t, b, 2, "6000", "6000", domain.TermPaid)
	assertTerm(t, b, 3, "6000", "4000", domain.TermPartial)
	assertDecimal(t, "2000", b.OverallBalanceFee)

	allocs, err = b.ApplyPayment(dec("5000"), 0)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, domain.BucketTerm, allocs[0].Bucket)
	assertDecimal(t, "2000", allocs[0].Amount)
	assert.Equal(t, domain.BucketOverpayment, allocs[1].Bucket)
	assertDecimal(t, "3000", allocs[1].Amount)
	assertTerm(t, b, 3, "6000", "6000", domain.TermPaid)
	assertDecimal(t, "3000", b.OverpaymentBalance)
	assertDecimal(t, "0", b.OverallBalanceFee)

	require.NoError(t, b.CheckInvariants())
	assertDecimal(t, "23000", b.NetCredited())
}

func TestApplyPayment_TermHint(t *testing.T) {
	b := newTuition(t, "20000")

	allocs, err := b.ApplyPayment(dec("7000"), 3)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, 3, allocs[0].Term)
	assertDecimal(t, "6000", allocs[0].Amount)
	assert.Equal(t, 1, allocs[1].Term)
	assertDecimal(t, "1000", allocs[1].Amount)
	assertTerm(t, b, 3, "6000", "6000", domain.TermPaid)
	assertTerm(t, b, 1, "8000", "1000", domain.TermPartial)

	// A hint at a PAID term falls back to the earliest open term.
	allocs, err = b.ApplyPayment(dec("500"), 3)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, 1, allocs[0].Term)
	require.NoError(t, b.CheckInvariants())
}

func TestApplyPayment_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		hint    int
		wantErr error
	}{
		{"zero amount", "0", 0, apperrors.ErrInvalidAmount},
		{"negative amount", "-10", 0, apperrors.ErrInvalidAmount},
		{"sub-cent amount", "10.005", 0, apperrors.ErrInvalidAmount},
		{"hint beyond last term", "10", 4, apperrors.ErrValidation},
		{"negative hint", "10", -1, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTuition(t, "20000")
			before := *b
			before.Terms = append([]domain.TermLine(nil), b.Terms...)

			_, err := b.ApplyPayment(dec(tt.amount), tt.hint)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, *b, "a rejected payment must not mutate the row")

			var le *apperrors.LedgerError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, "enr_1", le.EnrollmentID)
		})
	}
}

func TestApplyPayment_ZeroFeeGoesToOverpayment(t *testing.T) {
	b := newTuition(t, "0")
	for i := range b.Terms {
		assert.Equal(t, domain.TermPaid, b.Terms[i].Status, "a term with nothing due is PAID")
	}

	allocs, err := b.ApplyPayment(dec("250"), 0)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, domain.BucketOverpayment, allocs[0].Bucket)
	assertDecimal(t, "250", b.OverpaymentBalance)
	require.NoError(t, b.CheckInvariants())
}

func TestApplyConcession_ResplitsAndLocks(t *testing.T) {
	b := newTuition(t, "20000")

	require.NoError(t, b.ApplyConcession(dec("5000")))
	assertDecimal(t, "15000", b.TotalFee)
	assertDecimal(t, "15000", b.OverallBalanceFee)
	assertTerm(t, b, 1, "6000", "0", domain.TermPending)
	assertTerm(t, b, 2, "4500", "0", domain.TermPending)
	assertTerm(t, b, 3, "4500", "0", domain.TermPending)

	require.NoError(t, b.LockConcession())
	require.NoError(t, b.LockConcession(), "locking twice is a no-op")

	err := b.ApplyConcession(dec("1000"))
	assert.ErrorIs(t, err, apperrors.ErrLocked)
	assertDecimal(t, "5000", b.ConcessionAmount)

	require.NoError(t, b.UnlockConcession())
	require.NoError(t, b.ApplyConcession(dec("1000")))
	assertDecimal(t, "19000", b.TotalFee)
}

func TestApplyConcession_MovesExcessPaidAndAbsorbsItBack(t *testing.T) {
	b := newTuition(t, "20000")
	_, err := b.ApplyPayment(dec("8000"), 0)
	require.NoError(t, err)

	require.NoError(t, b.ApplyConcession(dec("5000")))
	assertTerm(t, b, 1, "6000", "6000", domain.TermPaid)
	assertTerm(t, b, 2, "4500", "2000", domain.TermPartial)
	assertTerm(t, b, 3, "4500", "0", domain.TermPending)
	assertDecimal(t, "0", b.OverpaymentBalance)
	assertDecimal(t, "7000", b.OverallBalanceFee)
	assertDecimal(t, "8000", b.NetCredited())
	require.NoError(t, b.CheckInvariants())

	require.NoError(t, b.ApplyConcession(dec("20000")))
	assertDecimal(t, "0", b.TotalFee)
	assertDecimal(t, "8000", b.OverpaymentBalance)
	assertDecimal(t, "8000", b.NetCredited())
	require.NoError(t, b.CheckInvariants())

	require.NoError(t, b.ApplyConcession(decimal.Zero))
	assertDecimal(t, "0", b.OverpaymentBalance)
	assertTerm(t, b, 1, "8000", "8000", domain.TermPaid)
	assertDecimal(t, "12000", b.OverallBalanceFee)
	require.NoError(t, b.CheckInvariants())
}

func TestApplyConcession_BoundNeverMutates(t *testing.T) {
	b := newTuition(t, "20000")
	before := *b
	before.Terms = append([]domain.TermLine(nil), b.Terms...)

	err := b.ApplyConcession(dec("20000.01"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidConcession)
	err = b.ApplyConcession(dec("-1"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	assert.Equal(t, before, *b)
}

func TestRefund(t *testing.T) {
	b := newTuition(t, "20000")
	for _, amt := range []string{"8000", "10000", "5000"} {
		_, err := b.ApplyPayment(dec(amt), 0)
		require.NoError(t, err)
	}

	allocs, err := b.Refund(dec("4000"))
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, domain.BucketOverpayment, allocs[0].Bucket)
	assertDecimal(t, "3000", allocs[0].Amount)
	assert.Equal(t, 3, allocs[1].Term)
	assertDecimal(t, "1000", allocs[1].Amount)
	assertDecimal(t, "0", b.OverpaymentBalance)
	assertTerm(t, b, 3, "6000", "5000", domain.TermPartial)
	assertDecimal(t, "1000", b.OverallBalanceFee)

	_, err = b.Refund(dec("19000.01"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, err = b.Refund(dec("19000"))
	require.NoError(t, err)
	for term := 1; term <= 3; term++ {
		assert.Equal(t, domain.TermPending, b.Terms[term-1].Status)
	}
	require.NoError(t, b.CheckInvariants())
}

func TestCancel_IsTerminal(t *testing.T) {
	b := newTuition(t, "20000")
	_, err := b.ApplyPayment(dec("100"), 0)
	require.NoError(t, err)

	require.NoError(t, b.Cancel())
	assert.ErrorIs(t, b.Cancel(), apperrors.ErrCancelled)

	_, err = b.ApplyPayment(dec("100"), 0)
	assert.ErrorIs(t, err, apperrors.ErrCancelled)
	assert.ErrorIs(t, b.ApplyConcession(dec("10")), apperrors.ErrCancelled)
	assert.ErrorIs(t, b.LockConcession(), apperrors.ErrCancelled)

	_, err = b.Refund(dec("100"))
	assert.NoError(t, err, "money held on a cancelled row can still be refunded")
}

func TestDeriveTermStatus(t *testing.T) {
	tests := []struct {
		amount, paid string
		want         domain.TermStatus
	}{
		{"100", "0", domain.TermPending},
		{"100", "0.01", domain.TermPartial},
		{"100", "99.99", domain.TermPartial},
		{"100", "100", domain.TermPaid},
		{"0", "0", domain.TermPaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.DeriveTermStatus(dec(tt.amount), dec(tt.paid)), "amount=%s paid=%s", tt.amount, tt.paid)
	}
}

func TestCheckInvariants_DetectsCorruption(t *testing.T) {
	b := newTuition(t, "20000")
	b.Terms[1].Paid = dec("7000")

	err := b.CheckInvariants()
	assert.ErrorIs(t, err, apperrors.ErrInvariantViolation)
	var le *apperrors.LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "0<=term_paid<=term_amount", le.Invariant)
}

// Random mixes of payments, refunds and concession changes must conserve money on the row.
func TestFeeBalance_ConservationUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		b := newTuition(t, "20000")
		posted := decimal.Zero
		refunded := decimal.Zero

		for step := 0; step < 40; step++ {
			amount := decimal.New(int64(rng.Intn(900000)+1), -2)
			switch rng.Intn(4) {
			case 0, 1:
				if _, err := b.ApplyPayment(amount, rng.Intn(4)); err == nil {
					posted = posted.Add(amount)
				}
			case 2:
				if _, err := b.Refund(amount); err == nil {
					refunded = refunded.Add(amount)
				}
			case 3:
				_ = b.ApplyConcession(decimal.New(int64(rng.Intn(2000001)), -2))
			}

			require.NoError(t, b.CheckInvariants(), "run %d step %d", run, step)
			require.True(t, b.NetCredited().Equal(posted.Sub(refunded)),
				"run %d step %d: credited %s, posted-refunded %s", run, step, b.NetCredited(), posted.Sub(refunded))
			for _, line := range b.Terms {
				require.False(t, line.Balance.IsNegative())
			}
		}
	}
}
