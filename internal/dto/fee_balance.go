package dto

import (
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateFeeBalanceRequest creates a single fee balance row for an enrollment.
type CreateFeeBalanceRequest struct {
	EnrollmentID string           `json:"enrollmentID" binding:"required"`
	FeeKind      domain.FeeKind   `json:"feeKind" binding:"required,feekind"`
	Concession   *decimal.Decimal `json:"concession,omitempty"`
}

// BulkInitRequest selects the cohort a bulk initialization covers.
type BulkInitRequest struct {
	ClassID  string  `json:"classID" binding:"required"`
	GroupID  *string `json:"groupID,omitempty"`
	CourseID *string `json:"courseID,omitempty"`
}

// ToCohortFilter converts the request into the domain filter.
func (r BulkInitRequest) ToCohortFilter() domain.CohortFilter {
	return domain.CohortFilter{ClassID: r.ClassID, GroupID: r.GroupID, CourseID: r.CourseID}
}

// ConcessionRequest sets the concession of a row to an absolute amount.
type ConcessionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason *string         `json:"reason,omitempty"`
}

// ConcessionLockRequest locks or unlocks a row's concession.
type ConcessionLockRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CancelFeeBalanceRequest moves a row to its terminal state.
type CancelFeeBalanceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListFeeBalancesParams holds the query filters for listing rows.
type ListFeeBalancesParams struct {
	EnrollmentID     *string `form:"enrollmentID"`
	ClassID          *string `form:"classID"`
	GroupID          *string `form:"groupID"`
	CourseID         *string `form:"courseID"`
	RouteID          *string `form:"routeID"`
	FeeKind          *string `form:"feeKind" binding:"omitempty,feekind"`
	IncludeCancelled bool    `form:"includeCancelled"`
}

// ToBalanceFilter converts the query into the domain filter.
func (p ListFeeBalancesParams) ToBalanceFilter() domain.BalanceFilter {
	f := domain.BalanceFilter{
		EnrollmentID:     p.EnrollmentID,
		ClassID:          p.ClassID,
		GroupID:          p.GroupID,
		CourseID:         p.CourseID,
		RouteID:          p.RouteID,
		IncludeCancelled: p.IncludeCancelled,
	}
	if p.FeeKind != nil {
		if kind, err := domain.ParseFeeKind(*p.FeeKind); err == nil {
			f.FeeKind = &kind
		}
	}
	return f
}

// TermResponse is one term of a fee balance.
type TermResponse struct {
	Term    int             `json:"term"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
	Paid    decimal.Decimal `json:"paid"`
	Balance decimal.Decimal `json:"balance"`
	Status  string          `json:"status"`
}

// FeeBalanceResponse defines the data returned for a fee balance row.
type FeeBalanceResponse struct {
	BalanceID           string          `json:"balanceID"`
	EnrollmentID        string          `json:"enrollmentID"`
	FeeKind             string          `json:"feeKind"`
	BranchID            string          `json:"branchID"`
	AcademicYearID      string          `json:"academicYearID"`
	ClassID             string          `json:"classID"`
	GroupID             *string         `json:"groupID,omitempty"`
	CourseID            *string         `json:"courseID,omitempty"`
	RouteID             *string         `json:"routeID,omitempty"`
	ActualFee           decimal.Decimal `json:"actualFee"`
	ConcessionAmount    decimal.Decimal `json:"concessionAmount"`
	TotalFee            decimal.Decimal `json:"totalFee"`
	Terms               []TermResponse  `json:"terms"`
	OverallBalanceFee   decimal.Decimal `json:"overallBalanceFee"`
	OverpaymentBalance  decimal.Decimal `json:"overpaymentBalance"`
	ConcessionLocked    bool            `json:"concessionLocked"`
	Status              string          `json:"status"`
	SourceReservationID *string         `json:"sourceReservationID,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	CreatedBy           string          `json:"createdBy"`
	LastUpdatedAt       time.Time       `json:"lastUpdatedAt"`
	LastUpdatedBy       string          `json:"lastUpdatedBy"`
	Version             int64           `json:"version"`
}

// ListFeeBalancesResponse wraps a list of rows.
type ListFeeBalancesResponse struct {
	Balances []FeeBalanceResponse `json:"balances"`
}

// ToFeeBalanceResponse converts a domain.FeeBalance to FeeBalanceResponse DTO.
func ToFeeBalanceResponse(b *domain.FeeBalance) FeeBalanceResponse {
	terms := make([]TermResponse, len(b.Terms))
	for i, t := range b.Terms {
		terms[i] = TermResponse{
			Term:    t.Term,
			Percent: t.Percent,
			Amount:  t.Amount,
			Paid:    t.Paid,
			Balance: t.Balance,
			Status:  string(t.Status),
		}
	}
	return FeeBalanceResponse{
		BalanceID:           b.BalanceID,
		EnrollmentID:        b.EnrollmentID,
		FeeKind:             string(b.FeeKind),
		BranchID:            b.BranchID,
		AcademicYearID:      b.AcademicYearID,
		ClassID:             b.ClassID,
		GroupID:             b.GroupID,
		CourseID:            b.CourseID,
		RouteID:             b.RouteID,
		ActualFee:           b.ActualFee,
		ConcessionAmount:    b.ConcessionAmount,
		TotalFee:            b.TotalFee,
		Terms:               terms,
		OverallBalanceFee:   b.OverallBalanceFee,
		OverpaymentBalance:  b.OverpaymentBalance,
		ConcessionLocked:    b.ConcessionLocked,
		Status:              string(b.Status),
		SourceReservationID: b.SourceReservationID,
		CreatedAt:           b.CreatedAt,
		CreatedBy:           b.CreatedBy,
		LastUpdatedAt:       b.LastUpdatedAt,
		LastUpdatedBy:       b.LastUpdatedBy,
		Version:             b.Version,
	}
}

// ToListFeeBalancesResponse converts a slice of rows.
func ToListFeeBalancesResponse(balances []domain.FeeBalance) ListFeeBalancesResponse {
	resp := ListFeeBalancesResponse{Balances: make([]FeeBalanceResponse, len(balances))}
	for i := range balances {
		resp.Balances[i] = ToFeeBalanceResponse(&balances[i])
	}
	return resp
}

// ConcessionEventResponse is one entry of a row's concession audit trail.
type ConcessionEventResponse struct {
	EventID        string          `json:"eventID"`
	Action         string          `json:"action"`
	PreviousAmount decimal.Decimal `json:"previousAmount"`
	NewAmount      decimal.Decimal `json:"newAmount"`
	ActorID        string          `json:"actorID"`
	ActorRole      string          `json:"actorRole"`
	Reason         *string         `json:"reason,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ToConcessionEventResponses converts the audit trail of a row.
func ToConcessionEventResponses(events []domain.ConcessionEvent) []ConcessionEventResponse {
	out := make([]ConcessionEventResponse, len(events))
	for i, e := range events {
		out[i] = ConcessionEventResponse{
			EventID:        e.EventID,
			Action:         string(e.Action),
			PreviousAmount: e.PreviousAmount,
			NewAmount:      e.NewAmount,
			ActorID:        e.ActorID,
			ActorRole:      string(e.ActorRole),
			Reason:         e.Reason,
			CreatedAt:      e.CreatedAt,
		}
	}
	return out
}

// ConvertReservationRequest names the enrollment a reservation became.
type ConvertReservationRequest struct {
	EnrollmentID string `json:"enrollmentID" binding:"required"`
}

// ConversionResponse reports the rows seeded from a reservation.
type ConversionResponse struct {
	ReservationID string               `json:"reservationID"`
	EnrollmentID  string               `json:"enrollmentID"`
	Balances      []FeeBalanceResponse `json:"balances"`
	SkippedKinds  []string             `json:"skippedKinds"`
}

// ToConversionResponse converts a reservation conversion result.
func ToConversionResponse(r *domain.ConversionResult) ConversionResponse {
	resp := ConversionResponse{
		ReservationID: r.ReservationID,
		EnrollmentID:  r.EnrollmentID,
		Balances:      make([]FeeBalanceResponse, len(r.Balances)),
		SkippedKinds:  make([]string, len(r.SkippedKinds)),
	}
	for i, b := range r.Balances {
		resp.Balances[i] = ToFeeBalanceResponse(b)
	}
	for i, k := range r.SkippedKinds {
		resp.SkippedKinds[i] = string(k)
	}
	return resp
}
