package domain

import (
	"fmt"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/shopspring/decimal"
)

// FeeStructureQuery identifies the master data a fee structure is resolved from.
type FeeStructureQuery struct {
	ClassID        string  `json:"classID"`
	GroupID        *string `json:"groupID,omitempty"`
	CourseID       *string `json:"courseID,omitempty"`
	RouteID        *string `json:"routeID,omitempty"`
	DistanceSlabID *string `json:"distanceSlabID,omitempty"`
}

// Validate checks the query shape before any master data lookup.
func (q FeeStructureQuery) Validate() error {
	if q.ClassID == "" {
		return fmt.Errorf("%w: class ID is required", apperrors.ErrValidation)
	}
	if q.RouteID != nil && (q.DistanceSlabID == nil || *q.DistanceSlabID == "") {
		return fmt.Errorf("%w: a transport route requires a distance slab", apperrors.ErrValidation)
	}
	if q.RouteID == nil && q.DistanceSlabID != nil {
		return fmt.Errorf("%w: a distance slab requires a transport route", apperrors.ErrValidation)
	}
	return nil
}

// TermSplit is a fee amount and its per-term breakdown.
type TermSplit struct {
	Total    decimal.Decimal   `json:"total"`
	Percents []decimal.Decimal `json:"percents"`
	Amounts  []decimal.Decimal `json:"amounts"`
}

// FeeStructure is the nominal fee figures for one placement. Transport is nil when no route was requested.
type FeeStructure struct {
	Query     FeeStructureQuery `json:"query"`
	Tuition   TermSplit         `json:"tuition"`
	Transport *TermSplit        `json:"transport,omitempty"`
	BookFee   decimal.Decimal   `json:"bookFee"`
}

// For returns the split for a fee kind.
func (s *FeeStructure) For(kind FeeKind) (*TermSplit, bool) {
	switch kind {
	case Tuition:
		return &s.Tuition, true
	case Transport:
		return s.Transport, s.Transport != nil
	}
	return nil, false
}

// ClassFeeStructure is an active tuition master row.
type ClassFeeStructure struct {
	ClassID     string
	GroupID     *string
	CourseID    *string
	TuitionFee  decimal.Decimal
	BookFee     decimal.Decimal
	IsActive    bool
	Description string
}

// TransportFeeStructure is an active transport master row for a route and distance slab.
type TransportFeeStructure struct {
	RouteID        string
	DistanceSlabID string
	Fee            decimal.Decimal
	IsActive       bool
}
