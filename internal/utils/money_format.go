package utils

import (
	"github.com/SscSPs/fee_ledger_app/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount with exactly the ledger's precision.
// Example: 12.3 returns "12.30", 12.345 returns "12.35"
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(accounting.MoneyScale)
}
