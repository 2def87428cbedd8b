package domain

import (
	"fmt"
	"strings"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
)

// FeeKind is one of the billable categories tracked by the ledger.
type FeeKind string

const (
	Tuition   FeeKind = "TUITION"
	Transport FeeKind = "TRANSPORT"
)

// FeeKinds lists every fee kind in creation order.
var FeeKinds = []FeeKind{Tuition, Transport}

// IsValid reports whether k is a known fee kind.
func (k FeeKind) IsValid() bool {
	switch k {
	case Tuition, Transport:
		return true
	}
	return false
}

// ParseFeeKind accepts a fee kind in any letter case.
func ParseFeeKind(s string) (FeeKind, error) {
	k := FeeKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown fee kind %q", apperrors.ErrValidation, s)
	}
	return k, nil
}

// TermStatus is the derived payment state of a single term.
type TermStatus string

const (
	TermPending TermStatus = "PENDING"
	TermPartial TermStatus = "PARTIAL"
	TermPaid    TermStatus = "PAID"
)

// BalanceStatus is the lifecycle state of a fee balance row. Rows are never deleted.
type BalanceStatus string

const (
	BalanceActive    BalanceStatus = "ACTIVE"
	BalanceCancelled BalanceStatus = "CANCELLED"
)

// BalanceKey is the primary key of a fee balance row.
type BalanceKey struct {
	EnrollmentID string  `json:"enrollmentID"`
	FeeKind      FeeKind `json:"feeKind"`
}

func (k BalanceKey) String() string {
	return k.EnrollmentID + "/" + string(k.FeeKind)
}

// Validate checks both parts of the key.
func (k BalanceKey) Validate() error {
	if k.EnrollmentID == "" {
		return fmt.Errorf("%w: enrollment ID is required", apperrors.ErrValidation)
	}
	if !k.FeeKind.IsValid() {
		return fmt.Errorf("%w: unknown fee kind %q", apperrors.ErrValidation, k.FeeKind)
	}
	return nil
}
