package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a reservation snapshot.
type ReservationStatus string

const (
	ReservationOpen      ReservationStatus = "OPEN"
	ReservationConverted ReservationStatus = "CONVERTED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// ProjectedFee is a fee agreed at reservation time.
type ProjectedFee struct {
	ActualFee  decimal.Decimal `json:"actualFee"`
	Concession decimal.Decimal `json:"concession"`
}

// ReservationFeeSnapshot holds the fees agreed before admission.
type ReservationFeeSnapshot struct {
	ReservationID         string            `json:"reservationID"`
	BranchID              string            `json:"branchID"`
	AcademicYearID        string            `json:"academicYearID"`
	ClassID               string            `json:"classID"`
	GroupID               *string           `json:"groupID,omitempty"`
	CourseID              *string           `json:"courseID,omitempty"`
	ApplicationFee        decimal.Decimal   `json:"applicationFee"`
	ReservationFee        decimal.Decimal   `json:"reservationFee"`
	Tuition               ProjectedFee      `json:"tuition"`
	Transport             *ProjectedFee     `json:"transport,omitempty"`
	TransportRouteID      *string           `json:"transportRouteID,omitempty"`
	Status                ReservationStatus `json:"status"`
	ConvertedEnrollmentID *string           `json:"convertedEnrollmentID,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
}

// InScope reports whether the reservation belongs to the given scope.
func (r *ReservationFeeSnapshot) InScope(s Scope) bool {
	return r.BranchID == s.BranchID && r.AcademicYearID == s.AcademicYearID
}

// MatchesPlacement reports whether the enrollment sits in the class, group and course the reservation priced.
func (r *ReservationFeeSnapshot) MatchesPlacement(e *Enrollment) bool {
	return r.ClassID == e.ClassID && sameOptional(r.GroupID, e.GroupID) && sameOptional(r.CourseID, e.CourseID)
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Projected returns the agreed figures for a fee kind.
func (r *ReservationFeeSnapshot) Projected(kind FeeKind) (*ProjectedFee, bool) {
	switch kind {
	case Tuition:
		return &r.Tuition, true
	case Transport:
		return r.Transport, r.Transport != nil
	}
	return nil, false
}

// ConversionResult reports the rows seeded when a reservation converts to an admission.
type ConversionResult struct {
	ReservationID string        `json:"reservationID"`
	EnrollmentID  string        `json:"enrollmentID"`
	Balances      []*FeeBalance `json:"balances"`
	// SkippedKinds lists kinds whose row already existed, so a retried conversion is a no-op.
	SkippedKinds []FeeKind `json:"skippedKinds"`
}
