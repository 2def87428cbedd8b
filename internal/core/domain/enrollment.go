package domain

import (
	"fmt"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
)

// Enrollment is a student's placement for an academic year. Owned by the enrollment subsystem.
type Enrollment struct {
	EnrollmentID   string               `json:"enrollmentID"`
	StudentID      string               `json:"studentID"`
	BranchID       string               `json:"branchID"`
	AcademicYearID string               `json:"academicYearID"`
	ClassID        string               `json:"classID"`
	GroupID        *string              `json:"groupID,omitempty"`
	CourseID       *string              `json:"courseID,omitempty"`
	IsActive       bool                 `json:"isActive"`
	Transport      *TransportAssignment `json:"transport,omitempty"` // Active assignment only
}

// TransportAssignment places an enrollment on a route at a distance slab.
type TransportAssignment struct {
	RouteID        string `json:"routeID"`
	DistanceSlabID string `json:"distanceSlabID"`
}

// FeeStructureQuery builds the resolver query for this placement.
func (e *Enrollment) FeeStructureQuery() FeeStructureQuery {
	q := FeeStructureQuery{ClassID: e.ClassID, GroupID: e.GroupID, CourseID: e.CourseID}
	if e.Transport != nil {
		route, slab := e.Transport.RouteID, e.Transport.DistanceSlabID
		q.RouteID = &route
		q.DistanceSlabID = &slab
	}
	return q
}

// ApplicableFeeKinds lists the fee kinds this enrollment is billed for, in creation order.
func (e *Enrollment) ApplicableFeeKinds() []FeeKind {
	if e.Transport != nil {
		return []FeeKind{Tuition, Transport}
	}
	return []FeeKind{Tuition}
}

// CohortFilter selects the enrollments a bulk run covers.
type CohortFilter struct {
	ClassID  string  `json:"classID"`
	GroupID  *string `json:"groupID,omitempty"`
	CourseID *string `json:"courseID,omitempty"`
}

func (f CohortFilter) Validate() error {
	if f.ClassID == "" {
		return fmt.Errorf("%w: class ID is required", apperrors.ErrValidation)
	}
	return nil
}

// BalanceFilter narrows fee balance listings. Nil fields do not filter.
type BalanceFilter struct {
	EnrollmentID     *string
	ClassID          *string
	GroupID          *string
	CourseID         *string
	RouteID          *string
	FeeKind          *FeeKind
	IncludeCancelled bool
}
