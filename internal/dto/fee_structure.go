package dto

import (
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ResolveFeeStructureRequest asks for the nominal fees of a placement.
type ResolveFeeStructureRequest struct {
	ClassID        string  `json:"classID" binding:"required"`
	GroupID        *string `json:"groupID,omitempty"`
	CourseID       *string `json:"courseID,omitempty"`
	RouteID        *string `json:"routeID,omitempty"`
	DistanceSlabID *string `json:"distanceSlabID,omitempty"`
}

// ToQuery converts the request into the resolver query.
func (r ResolveFeeStructureRequest) ToQuery() domain.FeeStructureQuery {
	return domain.FeeStructureQuery{
		ClassID:        r.ClassID,
		GroupID:        r.GroupID,
		CourseID:       r.CourseID,
		RouteID:        r.RouteID,
		DistanceSlabID: r.DistanceSlabID,
	}
}

// TermSplitResponse is a fee total with its term breakdown.
type TermSplitResponse struct {
	Total    decimal.Decimal   `json:"total"`
	Percents []decimal.Decimal `json:"percents"`
	Amounts  []decimal.Decimal `json:"amounts"`
}

// FeeStructureResponse defines the nominal fees returned by the resolver.
type FeeStructureResponse struct {
	Tuition   TermSplitResponse  `json:"tuition"`
	Transport *TermSplitResponse `json:"transport,omitempty"`
	BookFee   decimal.Decimal    `json:"bookFee"`
}

// ToFeeStructureResponse converts a domain.FeeStructure to FeeStructureResponse DTO.
func ToFeeStructureResponse(s *domain.FeeStructure) FeeStructureResponse {
	resp := FeeStructureResponse{
		Tuition: TermSplitResponse(s.Tuition),
		BookFee: s.BookFee,
	}
	if s.Transport != nil {
		t := TermSplitResponse(*s.Transport)
		resp.Transport = &t
	}
	return resp
}
