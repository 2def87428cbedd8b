package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrIdempotencyKeyReuse indicates a client key already used for a different payment.
var ErrIdempotencyKeyReuse = errors.New("idempotency key reused with a different payload")

// ErrInvalidAmount indicates a non-positive payment or a negative concession/refund amount.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInvalidConcession indicates a concession outside the bounds of the fee it reduces.
var ErrInvalidConcession = errors.New("invalid concession")

// ErrLocked indicates a concession mutation on a row whose concession has been locked.
var ErrLocked = errors.New("concession is locked")

// ErrCancelled indicates a mutation against a fee balance that has been cancelled.
var ErrCancelled = errors.New("fee balance is cancelled")

// ErrConflict indicates concurrent-write contention that outlived the retry budget.
var ErrConflict = errors.New("concurrent update conflict")

// ErrTransient indicates a timeout or connectivity failure. The caller may retry.
var ErrTransient = errors.New("transient failure, safe to retry")

// ErrForbidden indicates the actor lacks the privilege for the operation.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized indicates a missing or invalid identity.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvariantViolation indicates a mutation that would have left a row inconsistent.
var ErrInvariantViolation = errors.New("ledger invariant violated")

// ErrStatsUnavailable is returned by read paths that cannot produce a consistent aggregate.
var ErrStatsUnavailable = errors.New("stats unavailable")

// AppError wraps infrastructure failures with an HTTP-ish status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// LedgerError carries the structured detail a caller needs to render an actionable message:
// which row was targeted and which rule rejected the mutation.
type LedgerError struct {
	Err          error  `json:"-"`
	EnrollmentID string `json:"enrollmentID,omitempty"`
	FeeKind      string `json:"feeKind,omitempty"`
	Invariant    string `json:"invariant,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.EnrollmentID != "" {
		fmt.Fprintf(&b, " [enrollment=%s", e.EnrollmentID)
		if e.FeeKind != "" {
			fmt.Fprintf(&b, " feeKind=%s", e.FeeKind)
		}
		b.WriteString("]")
	}
	if e.Invariant != "" {
		fmt.Fprintf(&b, " (%s)", e.Invariant)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError builds a LedgerError around one of the sentinel errors above.
func NewLedgerError(sentinel error, enrollmentID, feeKind, invariant, detail string) *LedgerError {
	return &LedgerError{
		Err:          sentinel,
		EnrollmentID: enrollmentID,
		FeeKind:      feeKind,
		Invariant:    invariant,
		Detail:       detail,
	}
}

// IsRetryable reports whether err is a failure the caller may safely retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}
