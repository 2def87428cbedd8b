package accounting_test

import (
	"testing"

	"github.com/SscSPs/fee_ledger_app/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcts(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestSplitByPercentages(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		percents []decimal.Decimal
		want     []string
	}{
		{"tuition 40/30/30", "20000", pcts(40, 30, 30), []string{"8000", "6000", "6000"}},
		{"after concession", "15000", pcts(40, 30, 30), []string{"6000", "4500", "4500"}},
		{"transport 50/50", "7001", pcts(50, 50), []string{"3500.5", "3500.5"}},
		{"remainder lands on last term", "100", pcts(33, 33, 34), []string{"33", "33", "34"}},
		{"odd cents", "1000.01", pcts(40, 30, 30), []string{"400", "300", "300.01"}},
		{"zero total", "0", pcts(40, 30, 30), []string{"0", "0", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			parts, err := accounting.SplitByPercentages(total, tt.percents)
			require.NoError(t, err)
			require.Len(t, parts, len(tt.want))
			for i, w := range tt.want {
				assert.True(t, decimal.RequireFromString(w).Equal(parts[i]), "term %d: want %s got %s", i+1, w, parts[i])
			}
			assert.True(t, accounting.Sum(parts).Equal(total), "parts must add back up to the total")
		})
	}
}

func TestSplitByPercentages_InvalidSplits(t *testing.T) {
	tests := []struct {
		name     string
		total    decimal.Decimal
		percents []decimal.Decimal
	}{
		{"no terms", decimal.NewFromInt(100), nil},
		{"does not sum to 100", decimal.NewFromInt(100), pcts(40, 30, 20)},
		{"zero percentage", decimal.NewFromInt(100), pcts(100, 0)},
		{"negative total", decimal.NewFromInt(-1), pcts(50, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accounting.SplitByPercentages(tt.total, tt.percents)
			assert.ErrorIs(t, err, accounting.ErrInvalidSplit)
		})
	}
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "10.01", accounting.RoundMoney(decimal.RequireFromString("10.005")).String())
	assert.Equal(t, "10", accounting.RoundMoney(decimal.RequireFromString("10.004")).String())
}
