package accounting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every ledger amount is kept at.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// ErrInvalidSplit is returned when a set of term percentages cannot split a fee.
var ErrInvalidSplit = errors.New("invalid term split")

// RoundMoney rounds an amount half away from zero to MoneyScale places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ValidatePercentages checks that every percentage is positive and that they sum to exactly 100.
func ValidatePercentages(percents []decimal.Decimal) error {
	if len(percents) == 0 {
		return fmt.Errorf("%w: at least one term is required", ErrInvalidSplit)
	}
	sum := decimal.Zero
	for i, p := range percents {
		if !p.IsPositive() {
			return fmt.Errorf("%w: term %d percentage must be positive, got %s", ErrInvalidSplit, i+1, p)
		}
		sum = sum.Add(p)
	}
	if !sum.Equal(hundred) {
		return fmt.Errorf("%w: percentages sum to %s, expected 100", ErrInvalidSplit, sum)
	}
	return nil
}

// SplitByPercentages splits total into one amount per percentage.
// Every amount but the last is rounded independently; the last takes the remainder so the
// parts always add back up to total exactly.
func SplitByPercentages(total decimal.Decimal, percents []decimal.Decimal) ([]decimal.Decimal, error) {
	if err := ValidatePercentages(percents); err != nil {
		return nil, err
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("%w: total %s is negative", ErrInvalidSplit, total)
	}

	total = RoundMoney(total)
	parts := make([]decimal.Decimal, len(percents))
	allocated := decimal.Zero
	for i := 0; i < len(percents)-1; i++ {
		parts[i] = RoundMoney(total.Mul(percents[i]).Div(hundred))
		allocated = allocated.Add(parts[i])
	}
	last := total.Sub(allocated)
	if last.IsNegative() {
		return nil, fmt.Errorf("%w: rounding left a negative final term for total %s", ErrInvalidSplit, total)
	}
	parts[len(parts)-1] = last
	return parts, nil
}

// Sum adds up a slice of amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum
}
