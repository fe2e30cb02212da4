package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountAmount takes a fixed amount in store currency units.
	DiscountAmount DiscountType = "amount"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountPercentage, DiscountAmount:
		return true
	default:
		return false
	}
}

// Rejections returned by Validate. The messages are shown to shoppers as-is.
var (
	ErrInvalidCoupon     = errors.New("Invalid or inactive coupon")
	ErrNotActiveYet      = errors.New("Coupon not active yet")
	ErrExpired           = errors.New("Coupon has expired")
	ErrUsageLimitReached = errors.New("Coupon usage limit reached")
)

var (
	// ErrNotFound is returned by repositories when no coupon matches.
	ErrNotFound = errors.New("Coupon not found")
	// ErrCodeRequired is returned when a preview is requested without a code.
	ErrCodeRequired = errors.New("Coupon code is required")
	// ErrDuplicateCode is returned when a code is already taken by another coupon.
	ErrDuplicateCode = errors.New("Coupon code already exists")
)

// MinOrderValueError rejects a subtotal below the coupon's minimum order value.
type MinOrderValueError struct {
	MinOrderValue decimal.Decimal
}

func (e *MinOrderValueError) Error() string {
	return fmt.Sprintf("Minimum order value for this coupon is %s", e.MinOrderValue.String())
}

// FieldError reports an invalid coupon attribute on create or update.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Coupon is an admin-managed discount code.
//
// A zero MaxDiscount or UsageLimit behaves like an unset one: no cap and
// unlimited redemptions respectively.
type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	UsageLimit    *int
	UsageCount    int
	StartDate     *time.Time
	EndDate       *time.Time
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasUsageLimit reports whether redemptions are capped.
func (c *Coupon) HasUsageLimit() bool {
	return c.UsageLimit != nil && *c.UsageLimit > 0
}

// HasMaxDiscount reports whether the computed discount is capped.
func (c *Coupon) HasMaxDiscount() bool {
	return c.MaxDiscount.Valid && c.MaxDiscount.Decimal.IsPositive()
}

// NormalizeCode returns the canonical stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides lookup and administration of coupons.
type Repository interface {
	// FindByCode matches the code case-insensitively.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
}
