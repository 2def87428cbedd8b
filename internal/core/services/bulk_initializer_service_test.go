package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portssvc "github.com/SscSPs/fee_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/fee_ledger_app/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBulkFixture(t *testing.T, cohortSize, existing int) (*memStore, portssvc.BulkInitializerSvc) {
	t.Helper()
	store := newMemStore()
	store.addClassFee("class_5", "20000")
	for i := 0; i < cohortSize; i++ {
		id := fmt.Sprintf("enr_%02d", i)
		store.addEnrollment(id, "class_5", nil)
		if i < existing {
			store.seedTuition(id, "20000")
		}
	}
	resolver := services.NewFeeStructureService(store, tuitionSplit, transportSplit)
	return store, services.NewBulkInitializerService(store.provider(), resolver, 4)
}

func TestInitializeForCohort_SkipsExistingRows(t *testing.T) {
	store, svc := newBulkFixture(t, 30, 5)
	cohort := domain.CohortFilter{ClassID: "class_5"}

	result, err := svc.InitializeForCohort(context.Background(), testScope, cohort, testAccountant)
	require.NoError(t, err)
	assert.Equal(t, 25, result.CreatedCount)
	assert.Len(t, result.SkippedEnrollmentIDs, 5)
	assert.Equal(t, 30, result.TotalRequested)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"enr_00", "enr_01", "enr_02", "enr_03", "enr_04"}, result.SkippedEnrollmentIDs)

	created, ok := store.get(domain.BalanceKey{EnrollmentID: "enr_29", FeeKind: domain.Tuition})
	require.True(t, ok)
	assertDecimal(t, "8000", created.Terms[0].Amount, "term 1")

	again, err := svc.InitializeForCohort(context.Background(), testScope, cohort, testAccountant)
	require.NoError(t, err)
	assert.Equal(t, 0, again.CreatedCount)
	assert.Len(t, again.SkippedEnrollmentIDs, 30)
	assert.Equal(t, 30, again.TotalRequested)
}

func TestInitializeForCohort_CreatesTransportRows(t *testing.T) {
	store, svc := newBulkFixture(t, 2, 0)
	store.addTransportFee("route_1", "slab_a", "6000")
	store.addEnrollment("enr_t", "class_5", &domain.TransportAssignment{RouteID: "route_1", DistanceSlabID: "slab_a"})

	result, err := svc.InitializeForCohort(context.Background(), testScope, domain.CohortFilter{ClassID: "class_5"}, testAccountant)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CreatedCount)

	transport, ok := store.get(domain.BalanceKey{EnrollmentID: "enr_t", FeeKind: domain.Transport})
	require.True(t, ok)
	assertDecimal(t, "6000", transport.TotalFee, "transport total")
}

func TestInitializeForCohort_ReportsPerEnrollmentFailures(t *testing.T) {
	store, svc := newBulkFixture(t, 3, 0)
	// No fee structure exists for this route
	store.addEnrollment("enr_bad", "class_5", &domain.TransportAssignment{RouteID: "route_x", DistanceSlabID: "slab_a"})

	result, err := svc.InitializeForCohort(context.Background(), testScope, domain.CohortFilter{ClassID: "class_5"}, testAccountant)
	require.NoError(t, err)
	assert.Equal(t, 4, result.CreatedCount)
	assert.Equal(t, 4, result.TotalRequested)
	assert.Empty(t, result.SkippedEnrollmentIDs)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "enr_bad", result.Failures[0].EnrollmentID)
	assert.Equal(t, domain.Transport, result.Failures[0].FeeKind)
	assert.Contains(t, result.Failures[0].Reason, "route_x")

	_, ok := store.get(domain.BalanceKey{EnrollmentID: "enr_bad", FeeKind: domain.Tuition})
	assert.True(t, ok, "tuition row is created despite the missing transport structure")
	_, ok = store.get(domain.BalanceKey{EnrollmentID: "enr_bad", FeeKind: domain.Transport})
	assert.False(t, ok)
}

func TestInitializeForCohort_RerunCreatesTransportOnceMasterDataExists(t *testing.T) {
	store, svc := newBulkFixture(t, 1, 0)
	store.addEnrollment("enr_bad", "class_5", &domain.TransportAssignment{RouteID: "route_x", DistanceSlabID: "slab_a"})
	cohort := domain.CohortFilter{ClassID: "class_5"}

	first, err := svc.InitializeForCohort(context.Background(), testScope, cohort, testAccountant)
	require.NoError(t, err)
	require.Len(t, first.Failures, 1)

	store.addTransportFee("route_x", "slab_a", "4000")
	second, err := svc.InitializeForCohort(context.Background(), testScope, cohort, testAccountant)
	require.NoError(t, err)
	assert.Equal(t, 1, second.CreatedCount)
	assert.Empty(t, second.Failures)
	assert.Equal(t, []string{"enr_00"}, second.SkippedEnrollmentIDs)

	transport, ok := store.get(domain.BalanceKey{EnrollmentID: "enr_bad", FeeKind: domain.Transport})
	require.True(t, ok)
	assertDecimal(t, "4000", transport.TotalFee, "transport total")
}

func TestInitializeForCohort_AbortsOnTransientFailure(t *testing.T) {
	store, svc := newBulkFixture(t, 10, 0)
	store.createErr = func(key domain.BalanceKey) error {
		if key.EnrollmentID == "enr_07" {
			return fmt.Errorf("%w: connection reset", apperrors.ErrTransient)
		}
		return nil
	}

	_, err := svc.InitializeForCohort(context.Background(), testScope, domain.CohortFilter{ClassID: "class_5"}, testAccountant)
	assert.ErrorIs(t, err, apperrors.ErrTransient)
}

func TestInitializeForCohort_ValidatesInput(t *testing.T) {
	_, svc := newBulkFixture(t, 1, 0)

	_, err := svc.InitializeForCohort(context.Background(), testScope, domain.CohortFilter{}, testAccountant)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.InitializeForCohort(context.Background(), testScope, domain.CohortFilter{ClassID: "class_5"}, domain.Actor{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
