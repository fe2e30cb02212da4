package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// Validate checks whether c may be redeemed against subtotal at now.
// Checks run in a fixed order and the first failure is returned; a nil
// coupon is rejected the same way as an inactive one.
func Validate(c *Coupon, subtotal decimal.Decimal, now time.Time) error {
	if c == nil || !c.Active {
		return ErrInvalidCoupon
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return ErrNotActiveYet
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return ErrExpired
	}
	if c.HasUsageLimit() && c.UsageCount >= *c.UsageLimit {
		return ErrUsageLimitReached
	}
	if subtotal.LessThan(c.MinOrderValue) {
		return &MinOrderValueError{MinOrderValue: c.MinOrderValue}
	}
	return nil
}
