package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/fee_ledger_app/internal/models"
	"github.com/SscSPs/fee_ledger_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const feeBalanceColumns = `
	b.balance_id, b.enrollment_id, b.fee_kind, b.branch_id, b.academic_year_id,
	b.class_id, b.group_id, b.course_id, b.route_id,
	b.actual_fee, b.concession_amount, b.total_fee, b.overall_balance_fee, b.overpayment_balance,
	b.concession_locked, b.status, b.source_reservation_id,
	b.created_at, b.created_by, b.last_updated_at, b.last_updated_by, b.version`

// Tuition sorts before transport, matching creation order.
const feeBalanceOrder = `ORDER BY b.enrollment_id, CASE b.fee_kind WHEN 'TUITION' THEN 0 ELSE 1 END`

type PgxFeeBalanceRepository struct {
	BaseRepository
}

// newPgxFeeBalanceRepository creates a new repository for fee balance rows.
func newPgxFeeBalanceRepository(pool *pgxpool.Pool) portsrepo.FeeBalanceRepositoryFacade {
	return &PgxFeeBalanceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.FeeBalanceRepositoryFacade = (*PgxFeeBalanceRepository)(nil)

func scanFeeBalance(row pgx.Row) (models.FeeBalance, error) {
	var m models.FeeBalance
	err := row.Scan(
		&m.BalanceID,
		&m.EnrollmentID,
		&m.FeeKind,
		&m.BranchID,
		&m.AcademicYearID,
		&m.ClassID,
		&m.GroupID,
		&m.CourseID,
		&m.RouteID,
		&m.ActualFee,
		&m.ConcessionAmount,
		&m.TotalFee,
		&m.OverallBalanceFee,
		&m.OverpaymentBalance,
		&m.ConcessionLocked,
		&m.Status,
		&m.SourceReservationID,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Version,
	)
	return m, err
}

// loadTerms fetches the term rows of the given balances keyed by balance key, each in term order.
func loadTerms(ctx context.Context, q querier, keys []domain.BalanceKey) (map[domain.BalanceKey][]models.FeeBalanceTerm, error) {
	result := make(map[domain.BalanceKey][]models.FeeBalanceTerm, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	enrollmentIDs := make([]string, len(keys))
	kinds := make([]string, len(keys))
	for i, k := range keys {
		enrollmentIDs[i] = k.EnrollmentID
		kinds[i] = string(k.FeeKind)
	}

	query := `
		SELECT t.enrollment_id, t.fee_kind, t.term, t.percent, t.amount, t.paid, t.status
		FROM fee_balance_terms t
		JOIN unnest($1::text[], $2::text[]) AS k(enrollment_id, fee_kind)
		  ON t.enrollment_id = k.enrollment_id AND t.fee_kind = k.fee_kind
		ORDER BY t.enrollment_id, t.fee_kind, t.term;
	`
	rows, err := q.Query(ctx, query, enrollmentIDs, kinds)
	if err != nil {
		return nil, wrapQueryError(err, "failed to query fee balance terms")
	}
	defer rows.Close()

	for rows.Next() {
		var t models.FeeBalanceTerm
		if err := rows.Scan(&t.EnrollmentID, &t.FeeKind, &t.Term, &t.Percent, &t.Amount, &t.Paid, &t.Status); err != nil {
			return nil, wrapQueryError(err, "failed to scan fee balance term")
		}
		key := domain.BalanceKey{EnrollmentID: t.EnrollmentID, FeeKind: domain.FeeKind(t.FeeKind)}
		result[key] = append(result[key], t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "failed iterating fee balance terms")
	}
	return result, nil
}

// findOne loads a single row with its terms using q, optionally locking it.
func (r *PgxFeeBalanceRepository) findOne(ctx context.Context, q querier, key domain.BalanceKey, forUpdate bool) (*domain.FeeBalance, error) {
	query := `SELECT ` + feeBalanceColumns + `
		FROM fee_balances b
		WHERE b.enrollment_id = $1 AND b.fee_kind = $2`
	if forUpdate {
		query += ` FOR UPDATE OF b`
	}

	m, err := scanFeeBalance(q.QueryRow(ctx, query, key.EnrollmentID, string(key.FeeKind)))
	if err != nil {
		return nil, wrapQueryError(err, "failed to find fee balance %s", key)
	}

	terms, err := loadTerms(ctx, q, []domain.BalanceKey{key})
	if err != nil {
		return nil, err
	}
	balance := mapping.ToDomainFeeBalance(m, terms[key])
	return &balance, nil
}

// FindFeeBalance retrieves a single row by its key.
func (r *PgxFeeBalanceRepository) FindFeeBalance(ctx context.Context, key domain.BalanceKey) (*domain.FeeBalance, error) {
	return r.findOne(ctx, r.Pool, key, false)
}

// FindFeeBalanceForUpdate retrieves a row and locks it until tx ends.
// Term rows are only written under the parent row's lock, so they are read without their own.
func (r *PgxFeeBalanceRepository) FindFeeBalanceForUpdate(ctx context.Context, tx pgx.Tx, key domain.BalanceKey) (*domain.FeeBalance, error) {
	return r.findOne(ctx, tx, key, true)
}

// ListFeeBalances retrieves the rows of a scope matching the filter.
func (r *PgxFeeBalanceRepository) ListFeeBalances(ctx context.Context, scope domain.Scope, filter domain.BalanceFilter) ([]domain.FeeBalance, error) {
	var where whereClause
	where.add("b.branch_id = ? AND b.academic_year_id = ?", scope.BranchID, scope.AcademicYearID)
	if filter.EnrollmentID != nil {
		where.add("b.enrollment_id = ?", *filter.EnrollmentID)
	}
	if filter.FeeKind != nil {
		where.add("b.fee_kind = ?", string(*filter.FeeKind))
	}
	if filter.ClassID != nil {
		where.add("b.class_id = ?", *filter.ClassID)
	}
	if filter.GroupID != nil {
		where.add("b.group_id = ?", *filter.GroupID)
	}
	if filter.CourseID != nil {
		where.add("b.course_id = ?", *filter.CourseID)
	}
	if filter.RouteID != nil {
		where.add("b.route_id = ?", *filter.RouteID)
	}
	if !filter.IncludeCancelled {
		where.add("b.status = 'ACTIVE'")
	}

	query := `SELECT ` + feeBalanceColumns + ` FROM fee_balances b ` + where.String() + ` ` + feeBalanceOrder + `;`
	rows, err := r.Pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, wrapQueryError(err, "failed to list fee balances for branch %s", scope.BranchID)
	}
	defer rows.Close()

	var modelRows []models.FeeBalance
	for rows.Next() {
		m, err := scanFeeBalance(rows)
		if err != nil {
			return nil, wrapQueryError(err, "failed to scan fee balance row")
		}
		modelRows = append(modelRows, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "failed iterating fee balance rows")
	}

	keys := make([]domain.BalanceKey, len(modelRows))
	for i, m := range modelRows {
		keys[i] = domain.BalanceKey{EnrollmentID: m.EnrollmentID, FeeKind: domain.FeeKind(m.FeeKind)}
	}
	terms, err := loadTerms(ctx, r.Pool, keys)
	if err != nil {
		return nil, err
	}

	balances := make([]domain.FeeBalance, len(modelRows))
	for i, m := range modelRows {
		balances[i] = mapping.ToDomainFeeBalance(m, terms[keys[i]])
	}
	return balances, nil
}

// ListExistingFeeKinds returns, per enrollment, the fee kinds that already have a row.
// Cancelled rows count: a key is never reused.
func (r *PgxFeeBalanceRepository) ListExistingFeeKinds(ctx context.Context, enrollmentIDs []string) (map[string][]domain.FeeKind, error) {
	result := make(map[string][]domain.FeeKind)
	if len(enrollmentIDs) == 0 {
		return result, nil
	}
	query := `
		SELECT enrollment_id, fee_kind
		FROM fee_balances
		WHERE enrollment_id = ANY($1)
		ORDER BY enrollment_id, fee_kind;
	`
	rows, err := r.Pool.Query(ctx, query, enrollmentIDs)
	if err != nil {
		return nil, wrapQueryError(err, "failed to query existing fee kinds")
	}
	defer rows.Close()

	for rows.Next() {
		var enrollmentID, kind string
		if err := rows.Scan(&enrollmentID, &kind); err != nil {
			return nil, wrapQueryError(err, "failed to scan existing fee kind")
		}
		result[enrollmentID] = append(result[enrollmentID], domain.FeeKind(kind))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "failed iterating existing fee kinds")
	}
	return result, nil
}

// CreateFeeBalanceInTx inserts a new row with its terms.
func (r *PgxFeeBalanceRepository) CreateFeeBalanceInTx(ctx context.Context, tx pgx.Tx, balance domain.FeeBalance) error {
	m, terms := mapping.ToModelFeeBalance(balance)
	query := `
		INSERT INTO fee_balances (
			balance_id, enrollment_id, fee_kind, branch_id, academic_year_id,
			class_id, group_id, course_id, route_id,
			actual_fee, concession_amount, total_fee, overall_balance_fee, overpayment_balance,
			concession_locked, status, source_reservation_id,
			created_at, created_by, last_updated_at, last_updated_by, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err := tx.Exec(ctx, query,
		m.BalanceID,
		m.EnrollmentID,
		m.FeeKind,
		m.BranchID,
		m.AcademicYearID,
		m.ClassID,
		m.GroupID,
		m.CourseID,
		m.RouteID,
		m.ActualFee,
		m.ConcessionAmount,
		m.TotalFee,
		m.OverallBalanceFee,
		m.OverpaymentBalance,
		m.ConcessionLocked,
		m.Status,
		m.SourceReservationID,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.Version,
	)
	if err != nil {
		return wrapQueryError(err, "failed to insert fee balance %s", balance.Key())
	}

	batch := &pgx.Batch{}
	termQuery := `
		INSERT INTO fee_balance_terms (enrollment_id, fee_kind, term, percent, amount, paid, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	for _, t := range terms {
		batch.Queue(termQuery, t.EnrollmentID, t.FeeKind, t.Term, t.Percent, t.Amount, t.Paid, t.Status)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return wrapQueryError(err, "failed to insert terms for fee balance %s", balance.Key())
	}
	return nil
}

// UpdateFeeBalanceInTx writes the row's figures guarded by its version, then bumps balance.Version.
func (r *PgxFeeBalanceRepository) UpdateFeeBalanceInTx(ctx context.Context, tx pgx.Tx, balance *domain.FeeBalance) error {
	m, terms := mapping.ToModelFeeBalance(*balance)
	query := `
		UPDATE fee_balances
		SET concession_amount = $1,
		    total_fee = $2,
		    overall_balance_fee = $3,
		    overpayment_balance = $4,
		    concession_locked = $5,
		    status = $6,
		    last_updated_at = $7,
		    last_updated_by = $8,
		    version = version + 1
		WHERE enrollment_id = $9 AND fee_kind = $10 AND version = $11;
	`
	cmdTag, err := tx.Exec(ctx, query,
		m.ConcessionAmount,
		m.TotalFee,
		m.OverallBalanceFee,
		m.OverpaymentBalance,
		m.ConcessionLocked,
		m.Status,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.EnrollmentID,
		m.FeeKind,
		m.Version,
	)
	if err != nil {
		return wrapQueryError(err, "failed to update fee balance %s", balance.Key())
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: fee balance %s changed since version %d", apperrors.ErrConflict, balance.Key(), m.Version)
	}

	batch := &pgx.Batch{}
	termQuery := `
		UPDATE fee_balance_terms
		SET percent = $1, amount = $2, paid = $3, status = $4
		WHERE enrollment_id = $5 AND fee_kind = $6 AND term = $7;
	`
	for _, t := range terms {
		batch.Queue(termQuery, t.Percent, t.Amount, t.Paid, t.Status, t.EnrollmentID, t.FeeKind, t.Term)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return wrapQueryError(err, "failed to update terms for fee balance %s", balance.Key())
	}

	balance.Version++
	return nil
}
