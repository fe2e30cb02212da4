package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/abstore/internal/domain/money"
)

var hundred = decimal.NewFromInt(100)

// CalculateDiscount returns the discount c grants on subtotal.
//
// The result never exceeds MaxDiscount (when set) or the subtotal itself and
// is never negative. No rounding is applied here; callers round once when the
// amount is persisted or shown.
func CalculateDiscount(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}

	var discount decimal.Decimal
	if c.DiscountType == DiscountAmount {
		discount = c.DiscountValue
	} else {
		discount = subtotal.Mul(c.DiscountValue).Div(hundred)
	}

	if c.HasMaxDiscount() && discount.GreaterThan(c.MaxDiscount.Decimal) {
		discount = c.MaxDiscount.Decimal
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return money.FloorZero(discount)
}
