package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxDashboardRepository struct {
	BaseRepository
}

func newPgxDashboardRepository(pool *pgxpool.Pool) portsrepo.DashboardRepository {
	return &PgxDashboardRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.DashboardRepository = (*PgxDashboardRepository)(nil)

func dashboardWhere(scope domain.Scope, filter domain.DashboardFilter) *whereClause {
	where := &whereClause{}
	where.add("b.branch_id = ? AND b.academic_year_id = ?", scope.BranchID, scope.AcademicYearID)
	if filter.ClassID != nil {
		where.add("b.class_id = ?", *filter.ClassID)
	}
	if filter.RouteID != nil {
		where.add("b.route_id = ?", *filter.RouteID)
	}
	if filter.FeeKind != nil {
		where.add("b.fee_kind = ?", string(*filter.FeeKind))
	}
	return where
}

// AggregateFeeBalances computes totals and per-term status counts inside one
// repeatable-read transaction, so both queries see the same snapshot.
func (r *PgxDashboardRepository) AggregateFeeBalances(ctx context.Context, scope domain.Scope, filter domain.DashboardFilter) (*domain.DashboardStats, error) {
	tx, err := r.BeginSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	where := dashboardWhere(scope, filter)
	stats := &domain.DashboardStats{Scope: scope, Filter: filter}

	totalsQuery := `
		SELECT
			COALESCE(SUM(b.actual_fee) FILTER (WHERE b.status = 'ACTIVE'), 0),
			COALESCE(SUM(b.concession_amount) FILTER (WHERE b.status = 'ACTIVE'), 0),
			COALESCE(SUM(b.total_fee) FILTER (WHERE b.status = 'ACTIVE'), 0),
			COALESCE(SUM(b.total_fee - b.overall_balance_fee) FILTER (WHERE b.status = 'ACTIVE'), 0),
			COALESCE(SUM(b.overall_balance_fee) FILTER (WHERE b.status = 'ACTIVE'), 0),
			COALESCE(SUM(b.overpayment_balance), 0),
			COUNT(*) FILTER (WHERE b.status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE b.status = 'CANCELLED')
		FROM fee_balances b
	` + where.String() + `;`
	err = tx.QueryRow(ctx, totalsQuery, where.args...).Scan(
		&stats.TotalActualFee,
		&stats.TotalConcession,
		&stats.TotalNetFee,
		&stats.TotalPaid,
		&stats.TotalOutstanding,
		&stats.TotalOverpayment,
		&stats.RowCount,
		&stats.CancelledCount,
	)
	if err != nil {
		return nil, wrapQueryError(err, "failed to aggregate fee balances for branch %s", scope.BranchID)
	}

	termsQuery := `
		SELECT t.term,
		       COUNT(*) FILTER (WHERE t.status = 'PENDING'),
		       COUNT(*) FILTER (WHERE t.status = 'PARTIAL'),
		       COUNT(*) FILTER (WHERE t.status = 'PAID')
		FROM fee_balance_terms t
		JOIN fee_balances b ON b.enrollment_id = t.enrollment_id AND b.fee_kind = t.fee_kind
	` + where.String() + ` AND b.status = 'ACTIVE'
		GROUP BY t.term
		ORDER BY t.term;`
	rows, err := tx.Query(ctx, termsQuery, where.args...)
	if err != nil {
		return nil, wrapQueryError(err, "failed to count term statuses for branch %s", scope.BranchID)
	}
	defer rows.Close()

	stats.TermStatusCounts = []domain.TermStatusCount{}
	for rows.Next() {
		var c domain.TermStatusCount
		if err := rows.Scan(&c.Term, &c.Pending, &c.Partial, &c.Paid); err != nil {
			return nil, wrapQueryError(err, "failed to scan term status count")
		}
		stats.TermStatusCounts = append(stats.TermStatusCounts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "failed iterating term status counts")
	}
	rows.Close()

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	stats.GeneratedAt = time.Now().UTC()
	return stats, nil
}
