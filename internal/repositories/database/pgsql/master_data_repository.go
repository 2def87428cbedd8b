package pgsql

import (
	"context"

	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxMasterDataRepository reads the enrollment and fee master tables owned by other subsystems.
type PgxMasterDataRepository struct {
	BaseRepository
}

func newPgxMasterDataRepository(pool *pgxpool.Pool) *PgxMasterDataRepository {
	return &PgxMasterDataRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var (
	_ portsrepo.EnrollmentReader   = (*PgxMasterDataRepository)(nil)
	_ portsrepo.FeeStructureReader = (*PgxMasterDataRepository)(nil)
)

const enrollmentQuery = `
	SELECT e.enrollment_id, e.student_id, e.branch_id, e.academic_year_id,
	       e.class_id, e.group_id, e.course_id, e.is_active,
	       ta.route_id, ta.distance_slab_id
	FROM enrollments e
	LEFT JOIN transport_assignments ta ON ta.enrollment_id = e.enrollment_id AND ta.is_active`

func scanEnrollment(row pgx.Row) (domain.Enrollment, error) {
	var (
		e           domain.Enrollment
		route, slab *string
	)
	err := row.Scan(&e.EnrollmentID, &e.StudentID, &e.BranchID, &e.AcademicYearID,
		&e.ClassID, &e.GroupID, &e.CourseID, &e.IsActive, &route, &slab)
	if err != nil {
		return e, err
	}
	if route != nil && slab != nil {
		e.Transport = &domain.TransportAssignment{RouteID: *route, DistanceSlabID: *slab}
	}
	return e, nil
}

// FindEnrollment retrieves an enrollment with its active transport assignment, if any.
func (r *PgxMasterDataRepository) FindEnrollment(ctx context.Context, enrollmentID string) (*domain.Enrollment, error) {
	e, err := scanEnrollment(r.Pool.QueryRow(ctx, enrollmentQuery+` WHERE e.enrollment_id = $1;`, enrollmentID))
	if err != nil {
		return nil, wrapQueryError(err, "failed to find enrollment %s", enrollmentID)
	}
	return &e, nil
}

// ListActiveEnrollments retrieves the active enrollments of a cohort ordered by enrollment ID.
// A nil group or course in the cohort matches every group or course of the class.
func (r *PgxMasterDataRepository) ListActiveEnrollments(ctx context.Context, scope domain.Scope, cohort domain.CohortFilter) ([]domain.Enrollment, error) {
	var where whereClause
	where.add("e.branch_id = ? AND e.academic_year_id = ?", scope.BranchID, scope.AcademicYearID)
	where.add("e.is_active")
	where.add("e.class_id = ?", cohort.ClassID)
	if cohort.GroupID != nil {
		where.add("e.group_id = ?", *cohort.GroupID)
	}
	if cohort.CourseID != nil {
		where.add("e.course_id = ?", *cohort.CourseID)
	}

	rows, err := r.Pool.Query(ctx, enrollmentQuery+` `+where.String()+` ORDER BY e.enrollment_id;`, where.args...)
	if err != nil {
		return nil, wrapQueryError(err, "failed to list enrollments of class %s", cohort.ClassID)
	}
	defer rows.Close()

	var enrollments []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, wrapQueryError(err, "failed to scan enrollment")
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryError(err, "failed iterating enrollments")
	}
	return enrollments, nil
}

// FindClassFeeStructure retrieves the most specific active tuition structure for a placement.
// A structure without a group (or course) applies to every group (or course) of its class.
func (r *PgxMasterDataRepository) FindClassFeeStructure(ctx context.Context, scope domain.Scope, classID string, groupID, courseID *string) (*domain.ClassFeeStructure, error) {
	query := `
		SELECT class_id, group_id, course_id, tuition_fee, book_fee, is_active, description
		FROM class_fee_structures
		WHERE branch_id = $1 AND academic_year_id = $2 AND class_id = $3 AND is_active
		  AND (group_id IS NULL OR group_id = $4)
		  AND (course_id IS NULL OR course_id = $5)
		ORDER BY (group_id IS NOT NULL) DESC, (course_id IS NOT NULL) DESC
		LIMIT 1;
	`
	var (
		s    domain.ClassFeeStructure
		desc *string
	)
	err := r.Pool.QueryRow(ctx, query, scope.BranchID, scope.AcademicYearID, classID, groupID, courseID).Scan(
		&s.ClassID, &s.GroupID, &s.CourseID, &s.TuitionFee, &s.BookFee, &s.IsActive, &desc,
	)
	if err != nil {
		return nil, wrapQueryError(err, "failed to find fee structure for class %s", classID)
	}
	if desc != nil {
		s.Description = *desc
	}
	return &s, nil
}

// FindTransportFeeStructure retrieves the active transport structure for a route and distance slab.
func (r *PgxMasterDataRepository) FindTransportFeeStructure(ctx context.Context, scope domain.Scope, routeID, distanceSlabID string) (*domain.TransportFeeStructure, error) {
	query := `
		SELECT route_id, distance_slab_id, fee, is_active
		FROM transport_fee_structures
		WHERE branch_id = $1 AND academic_year_id = $2 AND route_id = $3 AND distance_slab_id = $4 AND is_active;
	`
	var s domain.TransportFeeStructure
	err := r.Pool.QueryRow(ctx, query, scope.BranchID, scope.AcademicYearID, routeID, distanceSlabID).Scan(
		&s.RouteID, &s.DistanceSlabID, &s.Fee, &s.IsActive,
	)
	if err != nil {
		return nil, wrapQueryError(err, "failed to find transport fee structure for route %s slab %s", routeID, distanceSlabID)
	}
	return &s, nil
}
