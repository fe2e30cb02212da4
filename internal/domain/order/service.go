package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/abstore/internal/domain/coupon"
)

const instrumentationName = "github.com/xenking/abstore/internal/domain/order"

// Sentinel errors for order placement and administration.
var (
	ErrEmptyItems = errors.New("No order items")
	ErrNotFound   = errors.New("Order not found")
	ErrNotPaid    = errors.New("Order must be paid before delivery")
)

// InvalidLineItemError indicates a line item with a negative price or quantity.
type InvalidLineItemError struct {
	Index  int
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("order item %d: %s", e.Index, e.Reason)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []LineItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	TaxPrice        decimal.Decimal
	CouponCode      string
}

// Option configures a Service.
type Option func(*Service)

// WithShippingPolicy overrides DefaultShippingPolicy.
func WithShippingPolicy(p ShippingPolicy) Option {
	return func(s *Service) { s.shipping = p }
}

// WithTracerProvider sets the tracer provider used for order spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the meter provider used for coupon counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter(instrumentationName) }
}

// Service encapsulates order placement and administration.
type Service struct {
	store    Store
	orders   Repository
	shipping ShippingPolicy
	now      func() time.Time

	tracer      trace.Tracer
	meter       metric.Meter
	redemptions metric.Int64Counter
	rejections  metric.Int64Counter
}

// NewService creates an order Service.
func NewService(store Store, orders Repository, opts ...Option) (*Service, error) {
	s := &Service{
		store:    store,
		orders:   orders,
		shipping: DefaultShippingPolicy(),
		now:      time.Now,
		tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:    metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	s.redemptions, err = s.meter.Int64Counter("coupon.redemptions",
		metric.WithDescription("Coupons redeemed by placed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create redemptions counter")
	}
	s.rejections, err = s.meter.Int64Counter("coupon.rejections",
		metric.WithDescription("Orders rejected because of their coupon"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create rejections counter")
	}

	return s, nil
}

// PlaceOrder prices the cart, applies the coupon (if any) and persists the
// order. Coupon validation, the usage increment and the insert share one
// transaction: a rejected coupon or a failed insert leaves nothing behind.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Price.IsNegative() {
			return nil, &InvalidLineItemError{Index: i, Reason: "price must not be negative"}
		}
		if item.Quantity < 0 {
			return nil, &InvalidLineItemError{Index: i, Reason: "quantity must not be negative"}
		}
	}

	code := coupon.NormalizeCode(req.CouponCode)
	if code == "" && req.CouponCode != "" {
		s.rejections.Add(ctx, 1)
		return nil, coupon.ErrInvalidCoupon
	}
	span.SetAttributes(
		attribute.Int("order.items", len(req.Items)),
		attribute.Bool("order.coupon", code != ""),
	)

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       now,
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var applied *coupon.Coupon
		if code != "" {
			c, err := s.redeem(ctx, tx, code, ItemsPrice(req.Items), now)
			if err != nil {
				return err
			}
			applied = c
		}

		o.Pricing = Price(req.Items, s.shipping, applied, req.TaxPrice)
		if err := tx.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if o.Pricing.CouponCode != "" {
		span.SetAttributes(attribute.String("coupon.code", o.Pricing.CouponCode))
		s.redemptions.Add(ctx, 1)
	}
	return o, nil
}

// redeem locks, validates and counts one use of the coupon matching code.
func (s *Service) redeem(ctx context.Context, tx Tx, code string, subtotal decimal.Decimal, now time.Time) (*coupon.Coupon, error) {
	c, err := tx.LockCoupon(ctx, code)
	if err != nil && !errors.Is(err, coupon.ErrNotFound) {
		return nil, errors.Wrap(err, "lock coupon")
	}

	if err := coupon.Validate(c, subtotal, now); err != nil {
		s.rejections.Add(ctx, 1)
		return nil, err
	}

	if err := tx.RedeemCoupon(ctx, c.ID); err != nil {
		if errors.Is(err, coupon.ErrUsageLimitReached) {
			s.rejections.Add(ctx, 1)
			return nil, err
		}
		return nil, errors.Wrap(err, "redeem coupon")
	}
	c.UsageCount++

	return c, nil
}

// Get returns the order with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "find order")
	}
	return o, nil
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// MarkPaid flags the order as paid now.
func (s *Service) MarkPaid(ctx context.Context, id string) (*Order, error) {
	if err := s.orders.MarkPaid(ctx, id, s.now()); err != nil {
		return nil, errors.Wrap(err, "mark paid")
	}
	return s.Get(ctx, id)
}

// MarkDelivered flags a paid order as delivered now.
func (s *Service) MarkDelivered(ctx context.Context, id string) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsPaid {
		return nil, ErrNotPaid
	}

	if err := s.orders.MarkDelivered(ctx, id, s.now()); err != nil {
		return nil, errors.Wrap(err, "mark delivered")
	}
	return s.Get(ctx, id)
}
