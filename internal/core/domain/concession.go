package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConcessionAction is the kind of change a concession audit event records.
type ConcessionAction string

const (
	ConcessionApply  ConcessionAction = "APPLY"
	ConcessionLock   ConcessionAction = "LOCK"
	ConcessionUnlock ConcessionAction = "UNLOCK"
)

// ConcessionEvent is an append-only audit record of a concession change.
type ConcessionEvent struct {
	EventID        string           `json:"eventID"`
	EnrollmentID   string           `json:"enrollmentID"`
	FeeKind        FeeKind          `json:"feeKind"`
	Action         ConcessionAction `json:"action"`
	PreviousAmount decimal.Decimal  `json:"previousAmount"`
	NewAmount      decimal.Decimal  `json:"newAmount"`
	ActorID        string           `json:"actorID"`
	ActorRole      Role             `json:"actorRole"`
	Reason         *string          `json:"reason,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}
