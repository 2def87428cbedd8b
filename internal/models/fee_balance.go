package models

import "github.com/shopspring/decimal"

// FeeBalance is a row of the fee_balances table.
type FeeBalance struct {
	BalanceID           string          `json:"balanceID"`
	EnrollmentID        string          `json:"enrollmentID"`
	FeeKind             string          `json:"feeKind"`
	BranchID            string          `json:"branchID"`
	AcademicYearID      string          `json:"academicYearID"`
	ClassID             string          `json:"classID"`
	GroupID             *string         `json:"groupID"`
	CourseID            *string         `json:"courseID"`
	RouteID             *string         `json:"routeID"`
	ActualFee           decimal.Decimal `json:"actualFee"`
	ConcessionAmount    decimal.Decimal `json:"concessionAmount"`
	TotalFee            decimal.Decimal `json:"totalFee"`
	OverallBalanceFee   decimal.Decimal `json:"overallBalanceFee"`
	OverpaymentBalance  decimal.Decimal `json:"overpaymentBalance"`
	ConcessionLocked    bool            `json:"concessionLocked"`
	Status              string          `json:"status"`
	SourceReservationID *string         `json:"sourceReservationID"`
	AuditFields
}

// FeeBalanceTerm is a row of the fee_balance_terms table.
type FeeBalanceTerm struct {
	EnrollmentID string          `json:"enrollmentID"`
	FeeKind      string          `json:"feeKind"`
	Term         int             `json:"term"`
	Percent      decimal.Decimal `json:"percent"`
	Amount       decimal.Decimal `json:"amount"`
	Paid         decimal.Decimal `json:"paid"`
	Status       string          `json:"status"`
}
