package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
)

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
	Version       int64     `json:"version"`       // Optimistic concurrency counter
}

// Touch stamps the update half of the audit fields.
func (a *AuditFields) Touch(userID string, now time.Time) {
	a.LastUpdatedAt = now
	a.LastUpdatedBy = userID
}

// Scope is the explicit branch/academic-year context every ledger operation runs in.
type Scope struct {
	BranchID       string `json:"branchID"`
	AcademicYearID string `json:"academicYearID"`
}

// Validate checks that both halves of the scope are present.
func (s Scope) Validate() error {
	if s.BranchID == "" || s.AcademicYearID == "" {
		return fmt.Errorf("%w: branch and academic year are required", apperrors.ErrValidation)
	}
	return nil
}

// Role is the privilege level carried by an authenticated actor.
type Role string

const (
	RoleAccountant Role = "ACCOUNTANT"
	RoleAdmin      Role = "ADMIN"
)

// Actor identifies who performs a mutation, for audit and privilege checks.
type Actor struct {
	UserID string `json:"userID"`
	Role   Role   `json:"role"`
}

// IsElevated reports whether the actor may perform privileged operations such as unlocking concessions.
func (a Actor) IsElevated() bool {
	return a.Role == RoleAdmin
}
