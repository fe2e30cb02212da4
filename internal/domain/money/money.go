// Package money holds the currency rounding rule shared by pricing code.
package money

import "github.com/shopspring/decimal"

// Places is the number of fractional digits kept for persisted amounts.
const Places = 2

// Round rounds an amount half away from zero to Places digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// FloorZero returns d, or zero when d is negative.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
