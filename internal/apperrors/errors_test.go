package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestLedgerError_UnwrapsToSentinel(t *testing.T) {
	err := apperrors.NewLedgerError(apperrors.ErrInvalidConcession, "enr-1", "TUITION", "concession<=actual_fee", "5000 > 4000")
	wrapped := fmt.Errorf("apply concession: %w", err)

	assert.ErrorIs(t, wrapped, apperrors.ErrInvalidConcession)
	assert.NotErrorIs(t, wrapped, apperrors.ErrLocked)

	var le *apperrors.LedgerError
	assert.True(t, errors.As(wrapped, &le))
	assert.Equal(t, "enr-1", le.EnrollmentID)
	assert.Contains(t, err.Error(), "enrollment=enr-1 feeKind=TUITION")
	assert.Contains(t, err.Error(), "(concession<=actual_fee)")
}

func TestAppError_Error(t *testing.T) {
	base := errors.New("boom")
	err := apperrors.NewAppError(500, "failed to begin transaction", base)

	assert.Equal(t, "failed to begin transaction: boom", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "no cause", apperrors.NewAppError(500, "no cause", nil).Error())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", fmt.Errorf("%w: timeout", apperrors.ErrTransient), true},
		{"conflict", apperrors.ErrConflict, true},
		{"not found", apperrors.ErrNotFound, false},
		{"locked", apperrors.NewLedgerError(apperrors.ErrLocked, "e", "TUITION", "", ""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.IsRetryable(tt.err))
		})
	}
}
