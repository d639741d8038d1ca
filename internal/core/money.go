package core

import "github.com/shopspring/decimal"

// AmountScale is the number of decimal places amounts are stored with.
const AmountScale = 2

// RoundAmount rounds half away from zero to AmountScale places, matching
// what a NUMERIC(14,2) column would keep.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

func init() {
	// Amounts travel as JSON numbers, e.g. 250.5 rather than "250.5".
	decimal.MarshalJSONWithoutQuotes = true
}
