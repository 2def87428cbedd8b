package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DashboardFilter narrows the rows a dashboard aggregates.
type DashboardFilter struct {
	ClassID *string  `json:"classID,omitempty"`
	RouteID *string  `json:"routeID,omitempty"`
	FeeKind *FeeKind `json:"feeKind,omitempty"`
}

// CacheKey renders the filter and scope into a stable key.
func (f DashboardFilter) CacheKey(s Scope) string {
	parts := []string{s.BranchID, s.AcademicYearID, deref(f.ClassID), deref(f.RouteID)}
	if f.FeeKind != nil {
		parts = append(parts, string(*f.FeeKind))
	} else {
		parts = append(parts, "")
	}
	return strings.Join(parts, ":")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TermStatusCount counts ACTIVE rows by the status of one term.
type TermStatusCount struct {
	Term    int `json:"term"`
	Pending int `json:"pending"`
	Partial int `json:"partial"`
	Paid    int `json:"paid"`
}

// DashboardStats is a consistent-snapshot summary of the ledger rows in scope.
type DashboardStats struct {
	Scope            Scope             `json:"scope"`
	Filter           DashboardFilter   `json:"filter"`
	TotalActualFee   decimal.Decimal   `json:"totalActualFee"`
	TotalConcession  decimal.Decimal   `json:"totalConcession"`
	TotalNetFee      decimal.Decimal   `json:"totalNetFee"`
	TotalPaid        decimal.Decimal   `json:"totalPaid"`
	TotalOutstanding decimal.Decimal   `json:"totalOutstanding"`
	TotalOverpayment decimal.Decimal   `json:"totalOverpayment"`
	RowCount         int               `json:"rowCount"`
	CancelledCount   int               `json:"cancelledCount"`
	TermStatusCounts []TermStatusCount `json:"termStatusCounts"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}

// BulkFailure is an enrollment a bulk run could not initialize.
type BulkFailure struct {
	EnrollmentID string  `json:"enrollmentID"`
	FeeKind      FeeKind `json:"feeKind,omitempty"`
	Reason       string  `json:"reason"`
}

// BulkInitResult summarizes a cohort initialization.
type BulkInitResult struct {
	CreatedCount         int           `json:"createdCount"`
	SkippedEnrollmentIDs []string      `json:"skippedEnrollmentIDs"`
	TotalRequested       int           `json:"totalRequested"`
	Failures             []BulkFailure `json:"failures"`
}
