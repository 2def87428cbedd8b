package dto

import (
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PurposeRequest is the wire shape of a payment purpose.
type PurposeRequest struct {
	Kind        string `json:"kind" binding:"required"`
	Term        int    `json:"term,omitempty" binding:"min=0"`
	Description string `json:"description,omitempty"`
}

// ToDomain converts the request into the closed purpose variant.
func (p PurposeRequest) ToDomain() domain.Purpose {
	return domain.Purpose{Kind: domain.PurposeKind(p.Kind), Term: p.Term, Description: p.Description}
}

// PostPaymentRequest records money received. EnrollmentID is required for term purposes,
// ReservationID for application and reservation fees.
type PostPaymentRequest struct {
	EnrollmentID   *string              `json:"enrollmentID,omitempty"`
	ReservationID  *string              `json:"reservationID,omitempty"`
	Purpose        PurposeRequest       `json:"purpose"`
	Amount         decimal.Decimal      `json:"amount"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod" binding:"required,paymentmethod"`
	IncomeDate     *time.Time           `json:"incomeDate,omitempty"`
	IdempotencyKey *string              `json:"idempotencyKey,omitempty" binding:"omitempty,max=128"`
	Reference      *string              `json:"reference,omitempty"`
	Notes          *string              `json:"notes,omitempty"`
}

// TermPaymentRequest posts a payment against one row with an optional term hint (0 = none).
type TermPaymentRequest struct {
	Term           int                  `json:"term" binding:"min=0"`
	Amount         decimal.Decimal      `json:"amount"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod" binding:"required,paymentmethod"`
	IncomeDate     *time.Time           `json:"incomeDate,omitempty"`
	IdempotencyKey *string              `json:"idempotencyKey,omitempty" binding:"omitempty,max=128"`
	Reference      *string              `json:"reference,omitempty"`
	Notes          *string              `json:"notes,omitempty"`
}

// RefundRequest returns money held against a row.
type RefundRequest struct {
	Amount         decimal.Decimal      `json:"amount"`
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod" binding:"required,paymentmethod"`
	IncomeDate     *time.Time           `json:"incomeDate,omitempty"`
	IdempotencyKey *string              `json:"idempotencyKey,omitempty" binding:"omitempty,max=128"`
	Reference      *string              `json:"reference,omitempty"`
	Notes          *string              `json:"notes,omitempty"`
}

// ListPaymentsParams holds the query filters for listing payments.
type ListPaymentsParams struct {
	EnrollmentID  *string    `form:"enrollmentID"`
	FeeKind       *string    `form:"feeKind" binding:"omitempty,feekind"`
	ReservationID *string    `form:"reservationID"`
	Direction     *string    `form:"direction" binding:"omitempty,oneof=PAYMENT REFUND"`
	From          *time.Time `form:"from" time_format:"2006-01-02"`
	To            *time.Time `form:"to" time_format:"2006-01-02"`
	Limit         int        `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken     *string    `form:"nextToken"`
}

// AllocationResponse is one line of a posting's itemization.
type AllocationResponse struct {
	Bucket string          `json:"bucket"`
	Term   int             `json:"term,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentResponse defines the data returned for a payment event.
type PaymentResponse struct {
	PaymentID      string               `json:"paymentID"`
	EnrollmentID   *string              `json:"enrollmentID,omitempty"`
	FeeKind        *string              `json:"feeKind,omitempty"`
	ReservationID  *string              `json:"reservationID,omitempty"`
	Direction      string               `json:"direction"`
	Purpose        string               `json:"purpose"`
	PaymentMethod  string               `json:"paymentMethod"`
	Amount         decimal.Decimal      `json:"amount"`
	IncomeDate     time.Time            `json:"incomeDate"`
	IdempotencyKey *string              `json:"idempotencyKey,omitempty"`
	Reference      *string              `json:"reference,omitempty"`
	Notes          *string              `json:"notes,omitempty"`
	Allocations    []AllocationResponse `json:"allocations"`
	CreatedAt      time.Time            `json:"createdAt"`
	CreatedBy      string               `json:"createdBy"`
}

// PostingResponse is the itemized outcome of a posting or refund.
type PostingResponse struct {
	Payment     PaymentResponse      `json:"payment"`
	Allocations []AllocationResponse `json:"allocations"`
	Balance     *FeeBalanceResponse  `json:"balance,omitempty"`
	Replayed    bool                 `json:"replayed"`
}

// ListPaymentsResponse is a page of payment events.
type ListPaymentsResponse struct {
	Payments  []PaymentResponse `json:"payments"`
	NextToken *string           `json:"nextToken,omitempty"`
}

func toAllocationResponses(allocs []domain.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, len(allocs))
	for i, a := range allocs {
		out[i] = AllocationResponse{Bucket: string(a.Bucket), Term: a.Term, Amount: a.Amount}
	}
	return out
}

// ToPaymentResponse converts a domain.PaymentEvent to PaymentResponse DTO.
func ToPaymentResponse(p *domain.PaymentEvent) PaymentResponse {
	resp := PaymentResponse{
		PaymentID:      p.PaymentID,
		EnrollmentID:   p.EnrollmentID,
		ReservationID:  p.ReservationID,
		Direction:      string(p.Direction),
		Purpose:        p.Purpose.String(),
		PaymentMethod:  string(p.Method),
		Amount:         p.Amount,
		IncomeDate:     p.IncomeDate,
		IdempotencyKey: p.IdempotencyKey,
		Reference:      p.Reference,
		Notes:          p.Notes,
		Allocations:    toAllocationResponses(p.Allocations),
		CreatedAt:      p.CreatedAt,
		CreatedBy:      p.CreatedBy,
	}
	if p.FeeKind != nil {
		kind := string(*p.FeeKind)
		resp.FeeKind = &kind
	}
	return resp
}

// ToPostingResponse converts a domain.PostingResult to PostingResponse DTO.
func ToPostingResponse(r *domain.PostingResult) PostingResponse {
	resp := PostingResponse{
		Payment:     ToPaymentResponse(&r.Payment),
		Allocations: toAllocationResponses(r.Allocations),
		Replayed:    r.Replayed,
	}
	if r.Balance != nil {
		b := ToFeeBalanceResponse(r.Balance)
		resp.Balance = &b
	}
	return resp
}
