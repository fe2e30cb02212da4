package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/abstore/internal/domain/coupon"
)

// Order is a placed customer order. Its Pricing is fixed at creation time;
// only the payment and delivery flags change afterwards.
type Order struct {
	ID              string
	Items           []LineItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	Pricing         Pricing
	IsPaid          bool
	PaidAt          *time.Time
	IsDelivered     bool
	DeliveredAt     *time.Time
	CreatedAt       time.Time
}

// LineItem is a cart line as submitted by the storefront.
type LineItem struct {
	ProductID string
	Name      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	FullName   string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// Pricing is the order's price breakdown. CouponCode is empty when no coupon
// was applied.
type Pricing struct {
	ItemsPrice     decimal.Decimal
	ShippingPrice  decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxPrice       decimal.Decimal
	TotalPrice     decimal.Decimal
	CouponCode     string
}

// Repository defines read and status operations on stored orders.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	MarkPaid(ctx context.Context, id string, at time.Time) error
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

// Store runs order placement inside a single transaction.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of operations order placement performs atomically.
type Tx interface {
	// LockCoupon returns the coupon matching code case-insensitively and
	// holds it until the transaction ends. It returns coupon.ErrNotFound
	// when no coupon matches.
	LockCoupon(ctx context.Context, code string) (*coupon.Coupon, error)
	// RedeemCoupon increments the coupon's usage count unless its usage
	// limit is already reached, in which case it returns
	// coupon.ErrUsageLimitReached.
	RedeemCoupon(ctx context.Context, id string) error
	Create(ctx context.Context, o *Order) error
}
