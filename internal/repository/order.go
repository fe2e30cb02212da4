package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/abstore/internal/domain/coupon"
	"github.com/xenking/abstore/internal/domain/order"
)

const orderColumns = `id, items, shipping_address, payment_method,
	items_price, shipping_price, discount_amount, tax_price, total_price, coupon_code,
	is_paid, paid_at, is_delivered, delivered_at, created_at`

const (
	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`

	markOrderPaidSQL = `UPDATE orders SET is_paid = TRUE, paid_at = $2 WHERE id = $1`

	markOrderDeliveredSQL = `UPDATE orders SET is_delivered = TRUE, delivered_at = $2 WHERE id = $1`
)

// lineItemRow and addressRow are the JSONB shapes of order.LineItem and
// order.ShippingAddress.
type lineItemRow struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
}

type addressRow struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// FindByID returns the order with the given id or order.ErrNotFound.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan order")
	}
	return &o, nil
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return orders, nil
}

// MarkPaid sets the paid flag and timestamp.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	return r.mark(ctx, markOrderPaidSQL, id, at)
}

// MarkDelivered sets the delivered flag and timestamp.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return r.mark(ctx, markOrderDeliveredSQL, id, at)
}

func (r *OrderRepository) mark(ctx context.Context, sql, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, sql, id, at)
	if err != nil {
		return errors.Wrapf(err, "update order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

var _ order.Store = (*Store)(nil)

// Store runs order placement transactions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx implements order.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCoupon(ctx, t.tx, lockCouponByCodeSQL, code)
}

func (t *pgTx) RedeemCoupon(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, redeemCouponSQL, id)
	if err != nil {
		return errors.Wrapf(err, "redeem coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func (t *pgTx) Create(ctx context.Context, o *order.Order) error {
	items := make([]lineItemRow, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemRow(it)
	}
	addr := addressRow(o.ShippingAddress)
	p := o.Pricing

	_, err := t.tx.Exec(ctx, createOrderSQL,
		o.ID, items, addr, o.PaymentMethod,
		p.ItemsPrice, p.ShippingPrice, p.DiscountAmount, p.TaxPrice, p.TotalPrice, p.CouponCode,
		o.IsPaid, o.PaidAt, o.IsDelivered, o.DeliveredAt, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o     order.Order
		items []lineItemRow
		addr  addressRow
		p     = &o.Pricing
	)
	err := row.Scan(
		&o.ID, &items, &addr, &o.PaymentMethod,
		&p.ItemsPrice, &p.ShippingPrice, &p.DiscountAmount, &p.TaxPrice, &p.TotalPrice, &p.CouponCode,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}

	o.Items = make([]order.LineItem, len(items))
	for i, it := range items {
		o.Items[i] = order.LineItem(it)
	}
	o.ShippingAddress = order.ShippingAddress(addr)
	return o, nil
}
