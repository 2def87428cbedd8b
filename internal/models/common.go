package models

import "time"

// Creation holds the insert-only audit columns of append-only tables.
type Creation struct {
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
}

// AuditFields holds the audit columns of mutable ledger tables.
type AuditFields struct {
	Creation
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
	Version       int64     `json:"version"`
}
