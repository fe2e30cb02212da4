package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/abstore/internal/domain/money"
)

// Quote is the advisory result of previewing a coupon against a subtotal.
type Quote struct {
	Coupon   *Coupon
	Discount decimal.Decimal
}

// Optional is a patch field. Set marks the field as present in the request;
// Null asks for a nullable field to be cleared.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Input holds the attributes of a new coupon.
type Input struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	UsageLimit    *int
	StartDate     *time.Time
	EndDate       *time.Time
	Active        *bool
}

// Patch holds a partial coupon update. UsageCount is deliberately absent:
// only order placement moves it.
type Patch struct {
	Code          Optional[string]
	DiscountType  Optional[DiscountType]
	DiscountValue Optional[decimal.Decimal]
	MinOrderValue Optional[decimal.Decimal]
	MaxDiscount   Optional[decimal.Decimal]
	UsageLimit    Optional[int]
	StartDate     Optional[time.Time]
	EndDate       Optional[time.Time]
	Active        Optional[bool]
}

// Service exposes coupon previews and administration.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a coupon Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Preview validates code against subtotal and returns the discount the
// shopper would get. It never changes the coupon's usage counter; the
// authoritative check happens again when the order is placed.
func (s *Service) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*Quote, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	c, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := Validate(c, subtotal, s.now()); err != nil {
		return nil, err
	}

	return &Quote{
		Coupon:   c,
		Discount: money.Round(CalculateDiscount(c, subtotal)),
	}, nil
}

// List returns all coupons, newest first.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return coupons, nil
}

// New builds a coupon from in and checks it. Active defaults to true.
func New(id string, in Input, now time.Time) (*Coupon, error) {
	c := &Coupon{
		ID:            id,
		Code:          NormalizeCode(in.Code),
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		MinOrderValue: in.MinOrderValue,
		MaxDiscount:   in.MaxDiscount,
		UsageLimit:    in.UsageLimit,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Active != nil {
		c.Active = *in.Active
	}
	roundAmounts(c)

	if err := check(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create validates in and stores a new coupon.
func (s *Service) Create(ctx context.Context, in Input) (*Coupon, error) {
	c, err := New(uuid.New().String(), in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create coupon")
	}
	return c, nil
}

// Update applies p to the coupon with the given id.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Coupon, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "find coupon")
	}

	if err := p.apply(c); err != nil {
		return nil, err
	}
	c.Code = NormalizeCode(c.Code)
	roundAmounts(c)
	c.UpdatedAt = s.now()

	if err := check(c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}

// Delete removes the coupon with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete coupon")
	}
	return nil
}

func (p Patch) apply(c *Coupon) error {
	required := []struct {
		field string
		null  bool
	}{
		{"code", p.Code.Null},
		{"discountType", p.DiscountType.Null},
		{"discountValue", p.DiscountValue.Null},
		{"minOrderValue", p.MinOrderValue.Null},
		{"active", p.Active.Null},
	}
	for _, r := range required {
		if r.null {
			return &FieldError{Field: r.field, Reason: "cannot be null"}
		}
	}

	if p.Code.Set {
		c.Code = p.Code.Value
	}
	if p.DiscountType.Set {
		c.DiscountType = p.DiscountType.Value
	}
	if p.DiscountValue.Set {
		c.DiscountValue = p.DiscountValue.Value
	}
	if p.MinOrderValue.Set {
		c.MinOrderValue = p.MinOrderValue.Value
	}
	if p.MaxDiscount.Set {
		c.MaxDiscount = decimal.NullDecimal{Decimal: p.MaxDiscount.Value, Valid: !p.MaxDiscount.Null}
	}
	if p.UsageLimit.Set {
		c.UsageLimit = nil
		if !p.UsageLimit.Null {
			limit := p.UsageLimit.Value
			c.UsageLimit = &limit
		}
	}
	if p.StartDate.Set {
		c.StartDate = nil
		if !p.StartDate.Null {
			start := p.StartDate.Value
			c.StartDate = &start
		}
	}
	if p.EndDate.Set {
		c.EndDate = nil
		if !p.EndDate.Null {
			end := p.EndDate.Value
			c.EndDate = &end
		}
	}
	if p.Active.Set {
		c.Active = p.Active.Value
	}
	return nil
}

// roundAmounts keeps money fields at the precision they are stored with.
func roundAmounts(c *Coupon) {
	c.DiscountValue = money.Round(c.DiscountValue)
	c.MinOrderValue = money.Round(c.MinOrderValue)
	if c.MaxDiscount.Valid {
		c.MaxDiscount.Decimal = money.Round(c.MaxDiscount.Decimal)
	}
}

// check enforces the stored-coupon invariants.
func check(c *Coupon) error {
	switch {
	case c.Code == "":
		return &FieldError{Field: "code", Reason: "is required"}
	case !c.DiscountType.Valid():
		return &FieldError{Field: "discountType", Reason: "must be percentage or amount"}
	case c.DiscountValue.IsNegative():
		return &FieldError{Field: "discountValue", Reason: "must not be negative"}
	case c.MinOrderValue.IsNegative():
		return &FieldError{Field: "minOrderValue", Reason: "must not be negative"}
	case c.MaxDiscount.Valid && c.MaxDiscount.Decimal.IsNegative():
		return &FieldError{Field: "maxDiscount", Reason: "must not be negative"}
	case c.UsageLimit != nil && *c.UsageLimit < 0:
		return &FieldError{Field: "usageLimit", Reason: "must not be negative"}
	case c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate):
		return &FieldError{Field: "endDate", Reason: "must not be before startDate"}
	}
	return nil
}
