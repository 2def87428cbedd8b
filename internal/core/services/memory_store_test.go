package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// memTx stands in for a database transaction. Writes apply immediately and are
// undone on rollback; row locks are held until the transaction ends.
type memTx struct {
	pgx.Tx
	locks []*sync.Mutex
	undo  []func()
	done  bool
}

// memStore is an in-memory ledger database with row locks and version checks.
type memStore struct {
	mu           sync.Mutex
	rowLocks     map[string]*sync.Mutex
	balances     map[domain.BalanceKey]domain.FeeBalance
	payments     []domain.PaymentEvent
	events       []domain.ConcessionEvent
	enrollments  map[string]domain.Enrollment
	classFees    []domain.ClassFeeStructure
	transport    map[string]domain.TransportFeeStructure
	reservations map[string]domain.ReservationFeeSnapshot

	// createErr, when set, is consulted before every row insert.
	createErr func(key domain.BalanceKey) error
	commits   int
}

func newMemStore() *memStore {
	return &memStore{
		rowLocks:     make(map[string]*sync.Mutex),
		balances:     make(map[domain.BalanceKey]domain.FeeBalance),
		enrollments:  make(map[string]domain.Enrollment),
		transport:    make(map[string]domain.TransportFeeStructure),
		reservations: make(map[string]domain.ReservationFeeSnapshot),
	}
}

func (s *memStore) provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:        s,
		FeeBalanceRepo:   s,
		PaymentRepo:      s,
		ConcessionRepo:   s,
		EnrollmentRepo:   s,
		FeeStructureRepo: s,
		ReservationRepo:  s,
	}
}

var (
	_ portsrepo.TransactionManager         = (*memStore)(nil)
	_ portsrepo.FeeBalanceRepositoryFacade = (*memStore)(nil)
	_ portsrepo.PaymentRepositoryFacade    = (*memStore)(nil)
	_ portsrepo.ConcessionEventRepository  = (*memStore)(nil)
	_ portsrepo.EnrollmentReader           = (*memStore)(nil)
	_ portsrepo.FeeStructureReader         = (*memStore)(nil)
	_ portsrepo.ReservationRepository      = (*memStore)(nil)
)

func copyBalance(b domain.FeeBalance) domain.FeeBalance {
	b.Terms = append([]domain.TermLine(nil), b.Terms...)
	return b
}

func copyPayment(p domain.PaymentEvent) domain.PaymentEvent {
	p.Allocations = append([]domain.Allocation(nil), p.Allocations...)
	return p
}

func (s *memStore) lockRow(tx pgx.Tx, name string) {
	s.mu.Lock()
	l, ok := s.rowLocks[name]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[name] = l
	}
	s.mu.Unlock()

	l.Lock()
	mt := tx.(*memTx)
	mt.locks = append(mt.locks, l)
}

func (s *memStore) release(tx *memTx) {
	for i := len(tx.locks) - 1; i >= 0; i-- {
		tx.locks[i].Unlock()
	}
	tx.locks = nil
	tx.done = true
}

// --- TransactionManager ---

func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransient, err)
	}
	return &memTx{}, nil
}

func (s *memStore) Commit(_ context.Context, tx pgx.Tx) error {
	mt := tx.(*memTx)
	if mt.done {
		return pgx.ErrTxClosed
	}
	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	s.release(mt)
	return nil
}

func (s *memStore) Rollback(_ context.Context, tx pgx.Tx) error {
	mt := tx.(*memTx)
	if mt.done {
		return nil
	}
	s.mu.Lock()
	for i := len(mt.undo) - 1; i >= 0; i-- {
		mt.undo[i]()
	}
	s.mu.Unlock()
	s.release(mt)
	return nil
}

// --- FeeBalance repository ---

func (s *memStore) put(b domain.FeeBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[b.Key()] = copyBalance(b)
}

func (s *memStore) get(key domain.BalanceKey) (domain.FeeBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[key]
	return copyBalance(b), ok
}

func (s *memStore) FindFeeBalance(_ context.Context, key domain.BalanceKey) (*domain.FeeBalance, error) {
	b, ok := s.get(key)
	if !ok {
		return nil, fmt.Errorf("%w: fee balance %s", apperrors.ErrNotFound, key)
	}
	return &b, nil
}

func (s *memStore) FindFeeBalanceForUpdate(ctx context.Context, tx pgx.Tx, key domain.BalanceKey) (*domain.FeeBalance, error) {
	s.lockRow(tx, "balance:"+key.String())
	return s.FindFeeBalance(ctx, key)
}

func (s *memStore) ListFeeBalances(_ context.Context, scope domain.Scope, filter domain.BalanceFilter) ([]domain.FeeBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.FeeBalance
	for _, b := range s.balances {
		if !b.InScope(scope) || (!filter.IncludeCancelled && b.IsCancelled()) {
			continue
		}
		if filter.EnrollmentID != nil && b.EnrollmentID != *filter.EnrollmentID {
			continue
		}
		if filter.FeeKind != nil && b.FeeKind != *filter.FeeKind {
			continue
		}
		if filter.ClassID != nil && b.ClassID != *filter.ClassID {
			continue
		}
		out = append(out, copyBalance(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnrollmentID != out[j].EnrollmentID {
			return out[i].EnrollmentID < out[j].EnrollmentID
		}
		return out[i].FeeKind > out[j].FeeKind // TUITION before TRANSPORT
	})
	return out, nil
}

func (s *memStore) ListExistingFeeKinds(_ context.Context, enrollmentIDs []string) (map[string][]domain.FeeKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(enrollmentIDs))
	for _, id := range enrollmentIDs {
		wanted[id] = true
	}
	out := make(map[string][]domain.FeeKind)
	for key := range s.balances {
		if wanted[key.EnrollmentID] {
			out[key.EnrollmentID] = append(out[key.EnrollmentID], key.FeeKind)
		}
	}
	return out, nil
}

func (s *memStore) CreateFeeBalanceInTx(_ context.Context, tx pgx.Tx, balance domain.FeeBalance) error {
	key := balance.Key()
	if s.createErr != nil {
		if err := s.createErr(key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[key]; exists {
		return fmt.Errorf("%w: fee balance %s", apperrors.ErrDuplicate, key)
	}
	s.balances[key] = copyBalance(balance)
	mt := tx.(*memTx)
	mt.undo = append(mt.undo, func() { delete(s.balances, key) })
	return nil
}

func (s *memStore) UpdateFeeBalanceInTx(_ context.Context, tx pgx.Tx, balance *domain.FeeBalance) error {
	key := balance.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.balances[key]
	if !ok {
		return fmt.Errorf("%w: fee balance %s", apperrors.ErrNotFound, key)
	}
	if stored.Version != balance.Version {
		return fmt.Errorf("%w: fee balance %s", apperrors.ErrConflict, key)
	}
	updated := copyBalance(*balance)
	updated.Version++
	s.balances[key] = updated
	mt := tx.(*memTx)
	mt.undo = append(mt.undo, func() { s.balances[key] = stored })
	balance.Version++
	return nil
}

// --- Payment repository ---

func (s *memStore) SavePaymentInTx(_ context.Context, tx pgx.Tx, payment domain.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment.IdempotencyKey != nil {
		for _, p := range s.payments {
			if p.IdempotencyKey != nil && *p.IdempotencyKey == *payment.IdempotencyKey &&
				p.BranchID == payment.BranchID && p.AcademicYearID == payment.AcademicYearID {
				return fmt.Errorf("%w: idempotency key %s", apperrors.ErrDuplicate, *payment.IdempotencyKey)
			}
		}
	}
	s.payments = append(s.payments, copyPayment(payment))
	id := payment.PaymentID
	mt := tx.(*memTx)
	mt.undo = append(mt.undo, func() {
		for i, p := range s.payments {
			if p.PaymentID == id {
				s.payments = append(s.payments[:i], s.payments[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *memStore) FindPaymentByIdempotencyKey(_ context.Context, scope domain.Scope, idempotencyKey string) (*domain.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.IdempotencyKey != nil && *p.IdempotencyKey == idempotencyKey &&
			p.BranchID == scope.BranchID && p.AcademicYearID == scope.AcademicYearID {
			found := copyPayment(p)
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: idempotency key %s", apperrors.ErrNotFound, idempotencyKey)
}

func (s *memStore) ListPayments(_ context.Context, scope domain.Scope, filter domain.PaymentFilter) ([]domain.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PaymentEvent
	for _, p := range s.payments {
		if p.BranchID != scope.BranchID || p.AcademicYearID != scope.AcademicYearID {
			continue
		}
		if filter.EnrollmentID != nil && (p.EnrollmentID == nil || *p.EnrollmentID != *filter.EnrollmentID) {
			continue
		}
		if filter.Direction != nil && p.Direction != *filter.Direction {
			continue
		}
		if filter.AfterCreatedAt != nil && filter.AfterID != nil {
			after := p.CreatedAt.Before(*filter.AfterCreatedAt) ||
				(p.CreatedAt.Equal(*filter.AfterCreatedAt) && p.PaymentID < *filter.AfterID)
			if !after {
				continue
			}
		}
		out = append(out, copyPayment(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PaymentID > out[j].PaymentID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

// --- Concession events ---

func (s *memStore) SaveConcessionEventInTx(_ context.Context, tx pgx.Tx, event domain.ConcessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	n := len(s.events)
	mt := tx.(*memTx)
	mt.undo = append(mt.undo, func() { s.events = s.events[:n-1] })
	return nil
}

func (s *memStore) ListConcessionEvents(_ context.Context, key domain.BalanceKey) ([]domain.ConcessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ConcessionEvent{}
	for _, e := range s.events {
		if e.EnrollmentID == key.EnrollmentID && e.FeeKind == key.FeeKind {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Master data ---

func (s *memStore) FindEnrollment(_ context.Context, enrollmentID string) (*domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[enrollmentID]
	if !ok {
		return nil, fmt.Errorf("%w: enrollment %s", apperrors.ErrNotFound, enrollmentID)
	}
	return &e, nil
}

func (s *memStore) ListActiveEnrollments(_ context.Context, scope domain.Scope, cohort domain.CohortFilter) ([]domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Enrollment
	for _, e := range s.enrollments {
		if e.BranchID != scope.BranchID || e.AcademicYearID != scope.AcademicYearID || !e.IsActive || e.ClassID != cohort.ClassID {
			continue
		}
		if cohort.GroupID != nil && (e.GroupID == nil || *e.GroupID != *cohort.GroupID) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentID < out[j].EnrollmentID })
	return out, nil
}

func (s *memStore) FindClassFeeStructure(_ context.Context, _ domain.Scope, classID string, groupID, _ *string) (*domain.ClassFeeStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *domain.ClassFeeStructure
	for i := range s.classFees {
		c := &s.classFees[i]
		if c.ClassID != classID || !c.IsActive {
			continue
		}
		if c.GroupID != nil && (groupID == nil || *c.GroupID != *groupID) {
			continue
		}
		if best == nil || c.GroupID != nil {
			best = c
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: fee structure for class %s", apperrors.ErrNotFound, classID)
	}
	found := *best
	return &found, nil
}

func (s *memStore) FindTransportFeeStructure(_ context.Context, _ domain.Scope, routeID, distanceSlabID string) (*domain.TransportFeeStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transport[routeID+"/"+distanceSlabID]
	if !ok {
		return nil, fmt.Errorf("%w: transport fee structure %s/%s", apperrors.ErrNotFound, routeID, distanceSlabID)
	}
	return &t, nil
}

// --- Reservations ---

func (s *memStore) FindReservation(_ context.Context, reservationID string) (*domain.ReservationFeeSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return nil, fmt.Errorf("%w: reservation %s", apperrors.ErrNotFound, reservationID)
	}
	return &r, nil
}

func (s *memStore) FindReservationForUpdate(ctx context.Context, tx pgx.Tx, reservationID string) (*domain.ReservationFeeSnapshot, error) {
	s.lockRow(tx, "reservation:"+reservationID)
	return s.FindReservation(ctx, reservationID)
}

func (s *memStore) MarkReservationConvertedInTx(_ context.Context, tx pgx.Tx, reservationID, enrollmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return fmt.Errorf("%w: reservation %s", apperrors.ErrNotFound, reservationID)
	}
	previous := r
	r.Status = domain.ReservationConverted
	r.ConvertedEnrollmentID = &enrollmentID
	s.reservations[reservationID] = r
	mt := tx.(*memTx)
	mt.undo = append(mt.undo, func() { s.reservations[reservationID] = previous })
	return nil
}

// --- Fixtures ---

var (
	testScope      = domain.Scope{BranchID: "branch_1", AcademicYearID: "ay_2025"}
	testAccountant = domain.Actor{UserID: "user_accountant", Role: domain.RoleAccountant}
	testAdmin      = domain.Actor{UserID: "user_admin", Role: domain.RoleAdmin}
	tuitionSplit   = []decimal.Decimal{decimal.NewFromInt(40), decimal.NewFromInt(30), decimal.NewFromInt(30)}
	transportSplit = []decimal.Decimal{decimal.NewFromInt(50), decimal.NewFromInt(50)}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func (s *memStore) addEnrollment(id, classID string, transport *domain.TransportAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollments[id] = domain.Enrollment{
		EnrollmentID:   id,
		StudentID:      "student_" + id,
		BranchID:       testScope.BranchID,
		AcademicYearID: testScope.AcademicYearID,
		ClassID:        classID,
		IsActive:       true,
		Transport:      transport,
	}
}

func (s *memStore) addClassFee(classID string, tuition string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classFees = append(s.classFees, domain.ClassFeeStructure{
		ClassID:    classID,
		TuitionFee: dec(tuition),
		BookFee:    dec("1500"),
		IsActive:   true,
	})
}

func (s *memStore) addTransportFee(routeID, slabID, fee string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport[routeID+"/"+slabID] = domain.TransportFeeStructure{RouteID: routeID, DistanceSlabID: slabID, Fee: dec(fee), IsActive: true}
}

// seedTuition stores an unpaid tuition row for an enrollment.
func (s *memStore) seedTuition(enrollmentID, total string) domain.FeeBalance {
	b, err := domain.NewFeeBalance(domain.NewFeeBalanceParams{
		BalanceID:    "bal_" + enrollmentID,
		EnrollmentID: enrollmentID,
		FeeKind:      domain.Tuition,
		Scope:        testScope,
		ClassID:      "class_5",
		ActualFee:    dec(total),
		Concession:   decimal.Zero,
		TermPercents: tuitionSplit,
		CreatedBy:    "seed",
	})
	if err != nil {
		panic(err)
	}
	s.put(*b)
	return *b
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, what string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s, got %s", what, want, got.String())
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
