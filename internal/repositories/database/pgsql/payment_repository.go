package pgsql

import (
	"context"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/fee_ledger_app/internal/models"
	"github.com/SscSPs/fee_ledger_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `
	p.payment_id, p.branch_id, p.academic_year_id, p.enrollment_id, p.fee_kind, p.reservation_id,
	p.direction, p.purpose_kind, p.purpose_term, p.purpose_description, p.payment_method,
	p.amount, p.income_date, p.idempotency_key, p.reference, p.notes, p.created_at, p.created_by`

const defaultPaymentPageSize = 50

type PgxPaymentRepository struct {
	BaseRepository
}

// newPgxPaymentRepository creates a new repository for payment events.
func newPgxPaymentRepository(pool *pgxpool.Pool) portsrepo.PaymentRepositoryFacade {
	return &PgxPaymentRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.PaymentRepositoryFacade = (*PgxPaymentRepository)(nil)

func scanPayment(row pgx.Row) (models.Payment, error) {
	var m models.Payment
	err := row.Scan(
		&m.PaymentID,
		&m.BranchID,
		&m.AcademicYearID,
		&m.EnrollmentID,
		&m.FeeKind,
		&m.ReservationID,
		&m.Direction,
		&m.PurposeKind,
		&m.PurposeTerm,
		&m.PurposeDescription,
		&m.PaymentMethod,
		&m.Amount,
		&m.IncomeDate,
		&m.IdempotencyKey,
		&m.Reference,
		&m.Notes,
		&m.CreatedAt,
		&m.CreatedBy,
	)
	return m, err
}

// loadAllocations fetches the allocations of the given payments keyed by payment ID, each in posting order.
func (r *PgxPaymentRepository) loadAllocations(ctx context.Context, paymentIDs []string) (map[string][]models.PaymentAllocation, error) {
	result := make(map[string][]models.PaymentAllocation, len(paymentIDs))
	if len(paymentIDs) == 0 {
		return result, nil
	}
	query := `
		SELECT payment_id, seq, bucket, term, amount
		FROM payment_allocations
		WHERE payment_id = ANY($1)
		ORDER BY payment_id, seq;
	`
	rows, err := r.Pool.Query(ctx, query, paymentIDs)
	if err != nil {
		return nil, wrapQueryError(err, "failed to query payment allocations")
	}
	defer rows.Close()

	for rows.Next() {
		var a models.PaymentAllocation
		if err := rows.Scan(&a.PaymentID, &a.Seq, &a.Bucket, &a.Term, &a.Amount); err != nil {
			return nil, wrapQueryError(err, "failed to scan payment allocation")
		}
		result[a.PaymentID] = append(result[a.PaymentID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "failed iterating payment allocations")
	}
	return result, nil
}

// SavePaymentInTx appends an event and its allocations.
func (r *PgxPaymentRepository) SavePaymentInTx(ctx context.Context, tx pgx.Tx, payment domain.PaymentEvent) error {
	m, allocs := mapping.ToModelPayment(payment)
	query := `
		INSERT INTO payments (
			payment_id, branch_id, academic_year_id, enrollment_id, fee_kind, reservation_id,
			direction, purpose_kind, purpose_term, purpose_description, payment_method,
			amount, income_date, idempotency_key, reference, notes, created_at, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err := tx.Exec(ctx, query,
		m.PaymentID,
		m.BranchID,
		m.AcademicYearID,
		m.EnrollmentID,
		m.FeeKind,
		m.ReservationID,
		m.Direction,
		m.PurposeKind,
		m.PurposeTerm,
		m.PurposeDescription,
		m.PaymentMethod,
		m.Amount,
		m.IncomeDate,
		m.IdempotencyKey,
		m.Reference,
		m.Notes,
		m.CreatedAt,
		m.CreatedBy,
	)
	if err != nil {
		return wrapQueryError(err, "failed to insert payment %s", m.PaymentID)
	}

	if len(allocs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	allocQuery := `
		INSERT INTO payment_allocations (payment_id, seq, bucket, term, amount)
		VALUES ($1, $2, $3, $4, $5);
	`
	for _, a := range allocs {
		batch.Queue(allocQuery, a.PaymentID, a.Seq, a.Bucket, a.Term, a.Amount)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return wrapQueryError(err, "failed to insert allocations for payment %s", m.PaymentID)
	}
	return nil
}

// FindPaymentByIdempotencyKey retrieves the event stored under a client key within a scope.
func (r *PgxPaymentRepository) FindPaymentByIdempotencyKey(ctx context.Context, scope domain.Scope, idempotencyKey string) (*domain.PaymentEvent, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p
		WHERE p.branch_id = $1 AND p.academic_year_id = $2 AND p.idempotency_key = $3;`
	m, err := scanPayment(r.Pool.QueryRow(ctx, query, scope.BranchID, scope.AcademicYearID, idempotencyKey))
	if err != nil {
		return nil, wrapQueryError(err, "failed to find payment by idempotency key")
	}

	allocs, err := r.loadAllocations(ctx, []string{m.PaymentID})
	if err != nil {
		return nil, err
	}
	payment := mapping.ToDomainPayment(m, allocs[m.PaymentID])
	return &payment, nil
}

// ListPayments retrieves events of a scope, newest first.
func (r *PgxPaymentRepository) ListPayments(ctx context.Context, scope domain.Scope, filter domain.PaymentFilter) ([]domain.PaymentEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPaymentPageSize
	}

	var where whereClause
	where.add("p.branch_id = ? AND p.academic_year_id = ?", scope.BranchID, scope.AcademicYearID)
	if filter.EnrollmentID != nil {
		where.add("p.enrollment_id = ?", *filter.EnrollmentID)
	}
	if filter.FeeKind != nil {
		where.add("p.fee_kind = ?", string(*filter.FeeKind))
	}
	if filter.ReservationID != nil {
		where.add("p.reservation_id = ?", *filter.ReservationID)
	}
	if filter.Direction != nil {
		where.add("p.direction = ?", string(*filter.Direction))
	}
	if filter.From != nil {
		where.add("p.income_date >= ?", *filter.From)
	}
	if filter.To != nil {
		where.add("p.income_date <= ?", *filter.To)
	}
	if filter.AfterCreatedAt != nil && filter.AfterID != nil {
		// Tuple comparison keeps the cursor stable across equal timestamps
		where.add("(p.created_at, p.payment_id) < (?, ?)", *filter.AfterCreatedAt, *filter.AfterID)
	}
	limitParam := where.next(limit)

	query := `SELECT ` + paymentColumns + ` FROM payments p ` + where.String() +
		` ORDER BY p.created_at DESC, p.payment_id DESC LIMIT ` + limitParam + `;`
	rows, err := r.Pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, wrapQueryError(err, "failed to list payments for branch %s", scope.BranchID)
	}
	defer rows.Close()

	var modelPayments []models.Payment
	for rows.Next() {
		m, err := scanPayment(rows)
		if err != nil {
			return nil, wrapQueryError(err, "failed to scan payment row")
		}
		modelPayments = append(modelPayments, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "failed iterating payment rows")
	}

	ids := make([]string, len(modelPayments))
	for i, m := range modelPayments {
		ids[i] = m.PaymentID
	}
	allocs, err := r.loadAllocations(ctx, ids)
	if err != nil {
		return nil, err
	}

	payments := make([]domain.PaymentEvent, len(modelPayments))
	for i, m := range modelPayments {
		payments[i] = mapping.ToDomainPayment(m, allocs[m.PaymentID])
	}
	return payments, nil
}
