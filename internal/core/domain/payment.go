package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/shopspring/decimal"
)

// PurposeKind tags the closed set of reasons money can be received for.
type PurposeKind string

const (
	PurposeTuitionTerm    PurposeKind = "TUITION_TERM"
	PurposeTransportTerm  PurposeKind = "TRANSPORT_TERM"
	PurposeBookFee        PurposeKind = "BOOK_FEE"
	PurposeApplicationFee PurposeKind = "APPLICATION_FEE"
	PurposeReservationFee PurposeKind = "RESERVATION_FEE"
	PurposeOther          PurposeKind = "OTHER"
)

// Purpose is a tagged variant: Term is only meaningful for the *_TERM kinds
// (0 means "no hint") and Description only for OTHER.
type Purpose struct {
	Kind        PurposeKind `json:"kind"`
	Term        int         `json:"term,omitempty"`
	Description string      `json:"description,omitempty"`
}

func TuitionTerm(n int) Purpose   { return Purpose{Kind: PurposeTuitionTerm, Term: n} }
func TransportTerm(n int) Purpose { return Purpose{Kind: PurposeTransportTerm, Term: n} }
func BookFee() Purpose            { return Purpose{Kind: PurposeBookFee} }
func ApplicationFee() Purpose     { return Purpose{Kind: PurposeApplicationFee} }
func ReservationFee() Purpose     { return Purpose{Kind: PurposeReservationFee} }
func OtherPurpose(description string) Purpose {
	return Purpose{Kind: PurposeOther, Description: description}
}

// Validate checks the variant's payload against its tag.
func (p Purpose) Validate() error {
	switch p.Kind {
	case PurposeTuitionTerm, PurposeTransportTerm:
		if p.Term < 0 {
			return fmt.Errorf("%w: term hint must not be negative", apperrors.ErrValidation)
		}
		if p.Description != "" {
			return fmt.Errorf("%w: %s purpose takes no description", apperrors.ErrValidation, p.Kind)
		}
	case PurposeBookFee, PurposeApplicationFee, PurposeReservationFee:
		if p.Term != 0 || p.Description != "" {
			return fmt.Errorf("%w: %s purpose takes no term or description", apperrors.ErrValidation, p.Kind)
		}
	case PurposeOther:
		if strings.TrimSpace(p.Description) == "" {
			return fmt.Errorf("%w: OTHER purpose requires a description", apperrors.ErrValidation)
		}
		if p.Term != 0 {
			return fmt.Errorf("%w: OTHER purpose takes no term", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown payment purpose %q", apperrors.ErrValidation, p.Kind)
	}
	return nil
}

// FeeKind returns the balance kind a purpose credits, and false for purposes that touch no balance.
func (p Purpose) FeeKind() (FeeKind, bool) {
	switch p.Kind {
	case PurposeTuitionTerm:
		return Tuition, true
	case PurposeTransportTerm:
		return Transport, true
	}
	return "", false
}

// TargetsReservation reports whether the purpose is paid against a reservation rather than an enrollment.
func (p Purpose) TargetsReservation() bool {
	return p.Kind == PurposeApplicationFee || p.Kind == PurposeReservationFee
}

func (p Purpose) String() string {
	switch p.Kind {
	case PurposeTuitionTerm, PurposeTransportTerm:
		if p.Term > 0 {
			return fmt.Sprintf("%s(%d)", p.Kind, p.Term)
		}
	case PurposeOther:
		return fmt.Sprintf("%s(%s)", p.Kind, p.Description)
	}
	return string(p.Kind)
}

// PaymentMethod is how money changed hands.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCard         PaymentMethod = "CARD"
	MethodUPI          PaymentMethod = "UPI"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCheque       PaymentMethod = "CHEQUE"
	MethodOnline       PaymentMethod = "ONLINE"
)

// PaymentMethods lists every accepted method.
var PaymentMethods = []PaymentMethod{MethodCash, MethodCard, MethodUPI, MethodBankTransfer, MethodCheque, MethodOnline}

func (m PaymentMethod) IsValid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// PaymentDirection distinguishes money received from money returned.
type PaymentDirection string

const (
	DirectionPayment PaymentDirection = "PAYMENT"
	DirectionRefund  PaymentDirection = "REFUND"
)

// AllocationBucket says where a slice of a payment landed.
type AllocationBucket string

const (
	BucketTerm        AllocationBucket = "TERM"
	BucketOverpayment AllocationBucket = "OVERPAYMENT"
)

// Allocation is one line of a posting's itemization.
type Allocation struct {
	Bucket AllocationBucket `json:"bucket"`
	Term   int              `json:"term,omitempty"` // Set for TERM allocations
	Amount decimal.Decimal  `json:"amount"`
}

// PaymentEvent is an immutable record of money received or refunded.
type PaymentEvent struct {
	PaymentID      string           `json:"paymentID"`
	BranchID       string           `json:"branchID"`
	AcademicYearID string           `json:"academicYearID"`
	EnrollmentID   *string          `json:"enrollmentID,omitempty"`
	FeeKind        *FeeKind         `json:"feeKind,omitempty"`
	ReservationID  *string          `json:"reservationID,omitempty"`
	Direction      PaymentDirection `json:"direction"`
	Purpose        Purpose          `json:"purpose"`
	Method         PaymentMethod    `json:"paymentMethod"`
	Amount         decimal.Decimal  `json:"amount"`
	IncomeDate     time.Time        `json:"incomeDate"`
	IdempotencyKey *string          `json:"idempotencyKey,omitempty"`
	Reference      *string          `json:"reference,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	Allocations    []Allocation     `json:"allocations,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	CreatedBy      string           `json:"createdBy"`
}

// SamePayload reports whether two events describe the same money movement, ignoring identity and audit.
// It decides whether a repeated idempotency key is a replay or a misuse.
func (p *PaymentEvent) SamePayload(other *PaymentEvent) bool {
	return p.BranchID == other.BranchID &&
		p.AcademicYearID == other.AcademicYearID &&
		equalPtr(p.EnrollmentID, other.EnrollmentID) &&
		equalPtr(p.FeeKind, other.FeeKind) &&
		equalPtr(p.ReservationID, other.ReservationID) &&
		p.Direction == other.Direction &&
		p.Purpose == other.Purpose &&
		p.Method == other.Method &&
		p.Amount.Equal(other.Amount) &&
		p.IncomeDate.Format(time.DateOnly) == other.IncomeDate.Format(time.DateOnly)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// PostingResult is returned by every posting so callers can itemize a receipt.
type PostingResult struct {
	Payment     PaymentEvent `json:"payment"`
	Allocations []Allocation `json:"allocations"`
	Balance     *FeeBalance  `json:"balance,omitempty"` // Nil for purposes that touch no balance
	Replayed    bool         `json:"replayed"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	EnrollmentID  *string
	FeeKind       *FeeKind
	ReservationID *string
	Direction     *PaymentDirection
	From          *time.Time
	To            *time.Time
	Limit         int
	// Cursor for keyset pagination: events strictly after this position are returned.
	AfterCreatedAt *time.Time
	AfterID        *string
}
