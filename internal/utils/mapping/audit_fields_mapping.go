package mapping

import (
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	"github.com/SscSPs/fee_ledger_app/internal/models"
)

// ToModelCreation builds the insert-only audit columns of an append-only row.
func ToModelCreation(at time.Time, by string) models.Creation {
	return models.Creation{CreatedAt: at.UTC(), CreatedBy: by}
}

// ToModelAuditFields converts domain audit fields into the columns of a mutable row.
func ToModelAuditFields(d domain.AuditFields) models.AuditFields {
	return models.AuditFields{
		Creation:      ToModelCreation(d.CreatedAt, d.CreatedBy),
		LastUpdatedAt: d.LastUpdatedAt.UTC(),
		LastUpdatedBy: d.LastUpdatedBy,
		Version:       d.Version,
	}
}

// ToDomainAuditFields converts stored audit columns back, reading timestamps as UTC
// whatever zone the connection reported them in.
func ToDomainAuditFields(m models.AuditFields) domain.AuditFields {
	return domain.AuditFields{
		CreatedAt:     m.CreatedAt.UTC(),
		CreatedBy:     m.CreatedBy,
		LastUpdatedAt: m.LastUpdatedAt.UTC(),
		LastUpdatedBy: m.LastUpdatedBy,
		Version:       m.Version,
	}
}
