package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/abstore/internal/domain/coupon"
	"github.com/xenking/abstore/internal/domain/money"
)

// ShippingPolicy prices delivery from the items subtotal.
type ShippingPolicy struct {
	// FreeThreshold is exclusive: a subtotal must exceed it to ship free.
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

// DefaultShippingPolicy ships free above 28,000 and charges 2,800 otherwise.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{
		FreeThreshold: decimal.NewFromInt(28000),
		FlatFee:       decimal.NewFromInt(2800),
	}
}

// Price returns the shipping price for itemsPrice.
func (p ShippingPolicy) Price(itemsPrice decimal.Decimal) decimal.Decimal {
	if itemsPrice.GreaterThan(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}

// ItemsPrice returns the sum of price * quantity over items.
func ItemsPrice(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// Price builds the pricing snapshot for items with an already validated
// coupon (nil for none). Every component is rounded with money.Round and the
// total is derived from the rounded components, floored at zero.
func Price(items []LineItem, shipping ShippingPolicy, c *coupon.Coupon, tax decimal.Decimal) Pricing {
	itemsPrice := ItemsPrice(items)

	p := Pricing{
		ItemsPrice:     money.Round(itemsPrice),
		ShippingPrice:  money.Round(shipping.Price(itemsPrice)),
		DiscountAmount: money.Round(coupon.CalculateDiscount(c, itemsPrice)),
		TaxPrice:       money.Round(tax),
	}
	if c != nil {
		p.CouponCode = c.Code
	}

	p.TotalPrice = money.FloorZero(
		p.ItemsPrice.Sub(p.DiscountAmount).Add(p.ShippingPrice).Add(p.TaxPrice),
	)
	return p
}
