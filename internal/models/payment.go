package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a row of the payments table.
type Payment struct {
	PaymentID          string          `json:"paymentID"`
	BranchID           string          `json:"branchID"`
	AcademicYearID     string          `json:"academicYearID"`
	EnrollmentID       *string         `json:"enrollmentID"`
	FeeKind            *string         `json:"feeKind"`
	ReservationID      *string         `json:"reservationID"`
	Direction          string          `json:"direction"`
	PurposeKind        string          `json:"purposeKind"`
	PurposeTerm        int             `json:"purposeTerm"`
	PurposeDescription *string         `json:"purposeDescription"`
	PaymentMethod      string          `json:"paymentMethod"`
	Amount             decimal.Decimal `json:"amount"`
	IncomeDate         time.Time       `json:"incomeDate"`
	IdempotencyKey     *string         `json:"idempotencyKey"`
	Reference          *string         `json:"reference"`
	Notes              *string         `json:"notes"`
	Creation
}

// PaymentAllocation is a row of the payment_allocations table.
type PaymentAllocation struct {
	PaymentID string          `json:"paymentID"`
	Seq       int             `json:"seq"`
	Bucket    string          `json:"bucket"`
	Term      *int            `json:"term"`
	Amount    decimal.Decimal `json:"amount"`
}
