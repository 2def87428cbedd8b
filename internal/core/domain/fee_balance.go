package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// TermLine holds the billed/paid figures of one term of a fee balance.
type TermLine struct {
	Term    int             `json:"term"`    // 1-based term number
	Percent decimal.Decimal `json:"percent"` // Share of TotalFee billed in this term
	Amount  decimal.Decimal `json:"amount"`
	Paid    decimal.Decimal `json:"paid"`
	Balance decimal.Decimal `json:"balance"` // Amount - Paid, never negative
	Status  TermStatus      `json:"status"`
}

// DeriveTermStatus computes a term's status from its figures.
// A term with nothing left to pay is PAID even when nothing was paid (e.g. a fully concessed term).
func DeriveTermStatus(amount, paid decimal.Decimal) TermStatus {
	if paid.GreaterThanOrEqual(amount) {
		return TermPaid
	}
	if paid.IsZero() {
		return TermPending
	}
	return TermPartial
}

// FeeBalance is the ledger row for one (enrollment, fee kind) pair.
type FeeBalance struct {
	BalanceID           string          `json:"balanceID"`
	EnrollmentID        string          `json:"enrollmentID"`
	FeeKind             FeeKind         `json:"feeKind"`
	BranchID            string          `json:"branchID"`
	AcademicYearID      string          `json:"academicYearID"`
	ClassID             string          `json:"classID"`
	GroupID             *string         `json:"groupID,omitempty"`
	CourseID            *string         `json:"courseID,omitempty"`
	RouteID             *string         `json:"routeID,omitempty"`
	ActualFee           decimal.Decimal `json:"actualFee"`
	ConcessionAmount    decimal.Decimal `json:"concessionAmount"`
	TotalFee            decimal.Decimal `json:"totalFee"`
	Terms               []TermLine      `json:"terms"`
	OverallBalanceFee   decimal.Decimal `json:"overallBalanceFee"`
	OverpaymentBalance  decimal.Decimal `json:"overpaymentBalance"`
	ConcessionLocked    bool            `json:"concessionLocked"`
	Status              BalanceStatus   `json:"status"`
	SourceReservationID *string         `json:"sourceReservationID,omitempty"`
	AuditFields
}

// NewFeeBalanceParams carries the initial figures for a new fee balance row.
type NewFeeBalanceParams struct {
	BalanceID           string
	EnrollmentID        string
	FeeKind             FeeKind
	Scope               Scope
	ClassID             string
	GroupID             *string
	CourseID            *string
	RouteID             *string
	ActualFee           decimal.Decimal
	Concession          decimal.Decimal
	TermPercents        []decimal.Decimal
	SourceReservationID *string
	CreatedBy           string
	Now                 time.Time
}

// NewFeeBalance builds a fresh, unpaid fee balance row from resolved figures.
func NewFeeBalance(p NewFeeBalanceParams) (*FeeBalance, error) {
	key := BalanceKey{EnrollmentID: p.EnrollmentID, FeeKind: p.FeeKind}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := p.Scope.Validate(); err != nil {
		return nil, err
	}
	if p.ActualFee.IsNegative() || !hasMoneyScale(p.ActualFee) {
		return nil, apperrors.NewLedgerError(apperrors.ErrInvalidAmount, p.EnrollmentID, string(p.FeeKind),
			"actual_fee>=0", fmt.Sprintf("actual fee %s is not a valid amount", p.ActualFee))
	}

	b := &FeeBalance{
		BalanceID:           p.BalanceID,
		EnrollmentID:        p.EnrollmentID,
		FeeKind:             p.FeeKind,
		BranchID:            p.Scope.BranchID,
		AcademicYearID:      p.Scope.AcademicYearID,
		ClassID:             p.ClassID,
		GroupID:             p.GroupID,
		CourseID:            p.CourseID,
		RouteID:             p.RouteID,
		ActualFee:           p.ActualFee,
		ConcessionAmount:    decimal.Zero,
		TotalFee:            p.ActualFee,
		OverpaymentBalance:  decimal.Zero,
		Status:              BalanceActive,
		SourceReservationID: p.SourceReservationID,
		AuditFields: AuditFields{
			CreatedAt:     p.Now,
			CreatedBy:     p.CreatedBy,
			LastUpdatedAt: p.Now,
			LastUpdatedBy: p.CreatedBy,
		},
	}

	if err := accounting.ValidatePercentages(p.TermPercents); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	b.Terms = make([]TermLine, len(p.TermPercents))
	for i, pct := range p.TermPercents {
		b.Terms[i] = TermLine{Term: i + 1, Percent: pct, Paid: decimal.Zero}
	}

	if err := b.setConcession(p.Concession); err != nil {
		return nil, err
	}
	return b, nil
}

// Key returns the primary key of the row.
func (b *FeeBalance) Key() BalanceKey {
	return BalanceKey{EnrollmentID: b.EnrollmentID, FeeKind: b.FeeKind}
}

// Scope returns the branch/academic-year scope of the row.
func (b *FeeBalance) Scope() Scope {
	return Scope{BranchID: b.BranchID, AcademicYearID: b.AcademicYearID}
}

// InScope reports whether the row belongs to the given scope.
func (b *FeeBalance) InScope(s Scope) bool {
	return b.BranchID == s.BranchID && b.AcademicYearID == s.AcademicYearID
}

// IsCancelled reports whether the row reached its terminal state.
func (b *FeeBalance) IsCancelled() bool {
	return b.Status == BalanceCancelled
}

// TotalPaid is the sum of all term payments.
func (b *FeeBalance) TotalPaid() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range b.Terms {
		sum = sum.Add(t.Paid)
	}
	return sum
}

// NetCredited is everything the row currently holds: term payments plus overpayment.
// It always equals payments posted minus refunds issued against the row.
func (b *FeeBalance) NetCredited() decimal.Decimal {
	return b.TotalPaid().Add(b.OverpaymentBalance)
}

// ApplyPayment credits amount to the row and returns the per-term itemization.
// termHint is a 1-based term number or 0 for "earliest unpaid term".
func (b *FeeBalance) ApplyPayment(amount decimal.Decimal, termHint int) ([]Allocation, error) {
	if b.IsCancelled() {
		return nil, b.ledgerErr(apperrors.ErrCancelled, "status=ACTIVE", "payments cannot be posted to a cancelled fee balance")
	}
	if !amount.IsPositive() || !hasMoneyScale(amount) {
		return nil, b.ledgerErr(apperrors.ErrInvalidAmount, "amount>0", fmt.Sprintf("payment amount %s must be positive with at most 2 decimals", amount))
	}
	if termHint < 0 || termHint > len(b.Terms) {
		return nil, b.ledgerErr(apperrors.ErrValidation, "1<=term<=terms", fmt.Sprintf("term %d does not exist, fee has %d terms", termHint, len(b.Terms)))
	}

	remaining := amount
	var allocations []Allocation
	for _, idx := range b.allocationOrder(termHint) {
		if !remaining.IsPositive() {
			break
		}
		t := &b.Terms[idx]
		due := t.Amount.Sub(t.Paid)
		if !due.IsPositive() {
			continue
		}
		applied := decimal.Min(remaining, due)
		t.Paid = t.Paid.Add(applied)
		remaining = remaining.Sub(applied)
		allocations = append(allocations, Allocation{Bucket: BucketTerm, Term: t.Term, Amount: applied})
	}

	if remaining.IsPositive() {
		b.OverpaymentBalance = b.OverpaymentBalance.Add(remaining)
		allocations = append(allocations, Allocation{Bucket: BucketOverpayment, Amount: remaining})
	}

	b.recompute()
	return allocations, nil
}

// allocationOrder returns term indexes in the order a payment should fill them:
// the hinted term first when it is still open, then every other term in term order.
func (b *FeeBalance) allocationOrder(termHint int) []int {
	order := make([]int, 0, len(b.Terms))
	hintIdx := -1
	if termHint > 0 && b.Terms[termHint-1].Status != TermPaid {
		hintIdx = termHint - 1
		order = append(order, hintIdx)
	}
	for i := range b.Terms {
		if i != hintIdx {
			order = append(order, i)
		}
	}
	return order
}

// Refund takes amount back out of the row: overpayment first, then the latest terms backwards.
// Statuses are re-derived, so a refunded term can move from PAID back to PARTIAL or PENDING.
func (b *FeeBalance) Refund(amount decimal.Decimal) ([]Allocation, error) {
	if !amount.IsPositive() || !hasMoneyScale(amount) {
		return nil, b.ledgerErr(apperrors.ErrInvalidAmount, "amount>0", fmt.Sprintf("refund amount %s must be positive with at most 2 decimals", amount))
	}
	if amount.GreaterThan(b.NetCredited()) {
		return nil, b.ledgerErr(apperrors.ErrInvalidAmount, "refund<=paid+overpayment",
			fmt.Sprintf("refund %s exceeds the %s credited to this fee", amount, b.NetCredited()))
	}

	remaining := amount
	var allocations []Allocation
	if b.OverpaymentBalance.IsPositive() {
		taken := decimal.Min(remaining, b.OverpaymentBalance)
		b.OverpaymentBalance = b.OverpaymentBalance.Sub(taken)
		remaining = remaining.Sub(taken)
		allocations = append(allocations, Allocation{Bucket: BucketOverpayment, Amount: taken})
	}
	for i := len(b.Terms) - 1; i >= 0 && remaining.IsPositive(); i-- {
		t := &b.Terms[i]
		if !t.Paid.IsPositive() {
			continue
		}
		taken := decimal.Min(remaining, t.Paid)
		t.Paid = t.Paid.Sub(taken)
		remaining = remaining.Sub(taken)
		allocations = append(allocations, Allocation{Bucket: BucketTerm, Term: t.Term, Amount: taken})
	}

	b.recompute()
	return allocations, nil
}

// ApplyConcession replaces the concession on the row and re-splits the terms from the new total.
func (b *FeeBalance) ApplyConcession(amount decimal.Decimal) error {
	if b.IsCancelled() {
		return b.ledgerErr(apperrors.ErrCancelled, "status=ACTIVE", "concessions cannot change on a cancelled fee balance")
	}
	if b.ConcessionLocked {
		return b.ledgerErr(apperrors.ErrLocked, "concession_lock=false", "concession has been locked for this fee")
	}
	return b.setConcession(amount)
}

func (b *FeeBalance) setConcession(amount decimal.Decimal) error {
	if amount.IsNegative() || !hasMoneyScale(amount) {
		return b.ledgerErr(apperrors.ErrInvalidAmount, "concession>=0", fmt.Sprintf("concession %s must be non-negative with at most 2 decimals", amount))
	}
	if amount.GreaterThan(b.ActualFee) {
		return b.ledgerErr(apperrors.ErrInvalidConcession, "concession<=actual_fee",
			fmt.Sprintf("concession %s exceeds actual fee %s", amount, b.ActualFee))
	}

	total := b.ActualFee.Sub(amount)
	percents := make([]decimal.Decimal, len(b.Terms))
	for i, t := range b.Terms {
		percents[i] = t.Percent
	}
	amounts, err := accounting.SplitByPercentages(total, percents)
	if err != nil {
		return b.ledgerErr(apperrors.ErrInvalidConcession, "term_split", err.Error())
	}

	b.ConcessionAmount = amount
	b.TotalFee = total
	for i := range b.Terms {
		t := &b.Terms[i]
		t.Amount = amounts[i]
		if t.Paid.GreaterThan(t.Amount) {
			b.OverpaymentBalance = b.OverpaymentBalance.Add(t.Paid.Sub(t.Amount))
			t.Paid = t.Amount
		}
	}
	b.absorbOverpayment()
	b.recompute()
	return nil
}

// absorbOverpayment moves held overpayment into terms that still have something due.
func (b *FeeBalance) absorbOverpayment() {
	for i := range b.Terms {
		if !b.OverpaymentBalance.IsPositive() {
			return
		}
		t := &b.Terms[i]
		due := t.Amount.Sub(t.Paid)
		if !due.IsPositive() {
			continue
		}
		moved := decimal.Min(due, b.OverpaymentBalance)
		t.Paid = t.Paid.Add(moved)
		b.OverpaymentBalance = b.OverpaymentBalance.Sub(moved)
	}
}

// LockConcession freezes the concession. Locking an already locked row is a no-op.
func (b *FeeBalance) LockConcession() error {
	if b.IsCancelled() {
		return b.ledgerErr(apperrors.ErrCancelled, "status=ACTIVE", "cancelled fee balance")
	}
	b.ConcessionLocked = true
	return nil
}

// UnlockConcession lifts the concession lock. Privilege checks happen in the caller.
func (b *FeeBalance) UnlockConcession() error {
	if b.IsCancelled() {
		return b.ledgerErr(apperrors.ErrCancelled, "status=ACTIVE", "cancelled fee balance")
	}
	b.ConcessionLocked = false
	return nil
}

// Cancel moves the row to its terminal state.
func (b *FeeBalance) Cancel() error {
	if b.IsCancelled() {
		return b.ledgerErr(apperrors.ErrCancelled, "status=ACTIVE", "fee balance is already cancelled")
	}
	b.Status = BalanceCancelled
	return nil
}

func (b *FeeBalance) recompute() {
	paid := decimal.Zero
	for i := range b.Terms {
		t := &b.Terms[i]
		t.Balance = decimal.Max(t.Amount.Sub(t.Paid), decimal.Zero)
		t.Status = DeriveTermStatus(t.Amount, t.Paid)
		paid = paid.Add(t.Paid)
	}
	b.OverallBalanceFee = b.TotalFee.Sub(paid)
}

// CheckInvariants verifies every arithmetic rule a persisted row must satisfy.
func (b *FeeBalance) CheckInvariants() error {
	if b.ActualFee.IsNegative() {
		return b.ledgerErr(apperrors.ErrInvariantViolation, "actual_fee>=0", b.ActualFee.String())
	}
	if b.ConcessionAmount.IsNegative() || b.ConcessionAmount.GreaterThan(b.ActualFee) {
		return b.ledgerErr(apperrors.ErrInvariantViolation, "0<=concession<=actual_fee", b.ConcessionAmount.String())
	}
	if !b.TotalFee.Equal(b.ActualFee.Sub(b.ConcessionAmount)) {
		return b.ledgerErr(apperrors.ErrInvariantViolation, "total_fee=actual_fee-concession", b.TotalFee.String())
	}
	if len(b.Terms) == 0 {
		return b.ledgerErr(apperrors.ErrInvariantViolation, "terms>0", "fee balance has no terms")
	}
	if b.OverpaymentBalance.IsNegative() {
		return b.ledgerErr(apperrors.ErrInvariantViolation, "overpayment_balance>=0", b.OverpaymentBalance.String())
	}

	amounts := decimal.Zero
	paid := decimal.Zero
	for i, t := range b.Terms {
		if t.Term != i+1 {
			return b.ledgerErr(apperrors.ErrInvariantViolation, "term_order", fmt.Sprintf("term %d at position %d", t.Term, i+1))
		}
		if t.Paid.IsNegative() || t.Paid.GreaterThan(t.Amount) {
			return b.ledgerErr(apperrors.ErrInvariantViolation, "0<=term_paid<=term_amount", fmt.Sprintf("term %d paid %s of %s", t.Term, t.Paid, t.Amount))
		}
		if !t.Balance.Equal(t.Amount.Sub(t.Paid)) || t.Balance.IsNegative() {
			return b.ledgerErr(apperrors.ErrInvariantViolation, "term_balance=term_amount-term_paid", fmt.Sprintf("term %d balance %s", t.Term, t.Balance))
		}
		if t.Status != DeriveTermStatus(t.Amount, t.Paid) {
			return b.ledgerErr(apperrors.ErrInvariantViolation, "term_status", fmt.Sprintf("term %d status %s", t.Term, t.Status))
		}
		amounts = amounts.Add(t.Amount)
		paid = paid.Add(t.Paid)
	}
	if !amounts.Equal(b.TotalFee) {
		return b.ledgerErr(apperrors.ErrInvariantViolation, "sum(term_amount)=total_fee", amounts.String())
	}
	if !b.OverallBalanceFee.Equal(b.TotalFee.Sub(paid)) {
		return b.ledgerErr(apperrors.ErrInvariantViolation, "overall_balance_fee=total_fee-sum(term_paid)", b.OverallBalanceFee.String())
	}
	return nil
}

func (b *FeeBalance) ledgerErr(sentinel error, invariant, detail string) *apperrors.LedgerError {
	return apperrors.NewLedgerError(sentinel, b.EnrollmentID, string(b.FeeKind), invariant, detail)
}

func hasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(accounting.RoundMoney(d))
}
