package dto

import (
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DashboardParams holds the query filters for the dashboard.
type DashboardParams struct {
	ClassID *string `form:"classID"`
	RouteID *string `form:"routeID"`
	FeeKind *string `form:"feeKind" binding:"omitempty,feekind"`
}

// ToDashboardFilter converts the query into the domain filter.
func (p DashboardParams) ToDashboardFilter() domain.DashboardFilter {
	f := domain.DashboardFilter{ClassID: p.ClassID, RouteID: p.RouteID}
	if p.FeeKind != nil {
		if kind, err := domain.ParseFeeKind(*p.FeeKind); err == nil {
			f.FeeKind = &kind
		}
	}
	return f
}

// TermStatusCountResponse counts rows by the status of one term.
type TermStatusCountResponse struct {
	Term    int `json:"term"`
	Pending int `json:"pending"`
	Partial int `json:"partial"`
	Paid    int `json:"paid"`
}

// DashboardResponse defines the summary returned by the dashboard.
type DashboardResponse struct {
	BranchID         string                    `json:"branchID"`
	AcademicYearID   string                    `json:"academicYearID"`
	TotalActualFee   decimal.Decimal           `json:"totalActualFee"`
	TotalConcession  decimal.Decimal           `json:"totalConcession"`
	TotalNetFee      decimal.Decimal           `json:"totalNetFee"`
	TotalPaid        decimal.Decimal           `json:"totalPaid"`
	TotalOutstanding decimal.Decimal           `json:"totalOutstanding"`
	TotalOverpayment decimal.Decimal           `json:"totalOverpayment"`
	RowCount         int                       `json:"rowCount"`
	CancelledCount   int                       `json:"cancelledCount"`
	TermStatusCounts []TermStatusCountResponse `json:"termStatusCounts"`
	GeneratedAt      time.Time                 `json:"generatedAt"`
}

// ToDashboardResponse converts domain.DashboardStats to DashboardResponse DTO.
func ToDashboardResponse(s *domain.DashboardStats) DashboardResponse {
	counts := make([]TermStatusCountResponse, len(s.TermStatusCounts))
	for i, c := range s.TermStatusCounts {
		counts[i] = TermStatusCountResponse(c)
	}
	return DashboardResponse{
		BranchID:         s.Scope.BranchID,
		AcademicYearID:   s.Scope.AcademicYearID,
		TotalActualFee:   s.TotalActualFee,
		TotalConcession:  s.TotalConcession,
		TotalNetFee:      s.TotalNetFee,
		TotalPaid:        s.TotalPaid,
		TotalOutstanding: s.TotalOutstanding,
		TotalOverpayment: s.TotalOverpayment,
		RowCount:         s.RowCount,
		CancelledCount:   s.CancelledCount,
		TermStatusCounts: counts,
		GeneratedAt:      s.GeneratedAt,
	}
}

// BulkInitResponse summarizes a cohort initialization.
type BulkInitResponse struct {
	CreatedCount         int                  `json:"createdCount"`
	SkippedEnrollmentIDs []string             `json:"skippedEnrollmentIDs"`
	TotalRequested       int                  `json:"totalRequested"`
	Failures             []domain.BulkFailure `json:"failures"`
}

// ToBulkInitResponse converts a domain.BulkInitResult to BulkInitResponse DTO.
func ToBulkInitResponse(r *domain.BulkInitResult) BulkInitResponse {
	resp := BulkInitResponse{
		CreatedCount:         r.CreatedCount,
		SkippedEnrollmentIDs: r.SkippedEnrollmentIDs,
		TotalRequested:       r.TotalRequested,
		Failures:             r.Failures,
	}
	if resp.SkippedEnrollmentIDs == nil {
		resp.SkippedEnrollmentIDs = []string{}
	}
	if resp.Failures == nil {
		resp.Failures = []domain.BulkFailure{}
	}
	return resp
}
