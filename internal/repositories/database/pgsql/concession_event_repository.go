package pgsql

import (
	"context"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxConcessionEventRepository struct {
	BaseRepository
}

func newPgxConcessionEventRepository(pool *pgxpool.Pool) portsrepo.ConcessionEventRepository {
	return &PgxConcessionEventRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.ConcessionEventRepository = (*PgxConcessionEventRepository)(nil)

// SaveConcessionEventInTx appends an audit event.
func (r *PgxConcessionEventRepository) SaveConcessionEventInTx(ctx context.Context, tx pgx.Tx, event domain.ConcessionEvent) error {
	query := `
		INSERT INTO concession_events (
			event_id, enrollment_id, fee_kind, action, previous_amount, new_amount,
			actor_id, actor_role, reason, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := tx.Exec(ctx, query,
		event.EventID,
		event.EnrollmentID,
		string(event.FeeKind),
		string(event.Action),
		event.PreviousAmount,
		event.NewAmount,
		event.ActorID,
		string(event.ActorRole),
		event.Reason,
		event.CreatedAt,
	)
	if err != nil {
		return wrapQueryError(err, "failed to insert concession event for %s/%s", event.EnrollmentID, event.FeeKind)
	}
	return nil
}

// ListConcessionEvents retrieves the audit trail of a row, oldest first.
func (r *PgxConcessionEventRepository) ListConcessionEvents(ctx context.Context, key domain.BalanceKey) ([]domain.ConcessionEvent, error) {
	query := `
		SELECT event_id, enrollment_id, fee_kind, action, previous_amount, new_amount,
		       actor_id, actor_role, reason, created_at
		FROM concession_events
		WHERE enrollment_id = $1 AND fee_kind = $2
		ORDER BY created_at, event_id;
	`
	rows, err := r.Pool.Query(ctx, query, key.EnrollmentID, string(key.FeeKind))
	if err != nil {
		return nil, wrapQueryError(err, "failed to query concession events for %s", key)
	}
	defer rows.Close()

	events := []domain.ConcessionEvent{}
	for rows.Next() {
		var (
			e                       domain.ConcessionEvent
			kind, action, actorRole string
		)
		if err := rows.Scan(&e.EventID, &e.EnrollmentID, &kind, &action, &e.PreviousAmount, &e.NewAmount,
			&e.ActorID, &actorRole, &e.Reason, &e.CreatedAt); err != nil {
			return nil, wrapQueryError(err, "failed to scan concession event")
		}
		e.FeeKind = domain.FeeKind(kind)
		e.Action = domain.ConcessionAction(action)
		e.ActorRole = domain.Role(actorRole)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "failed iterating concession events")
	}
	return events, nil
}
