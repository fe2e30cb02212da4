package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/abstore/internal/domain/coupon"
)

const couponColumns = `id, code, discount_type, discount_value, min_order_value, max_discount,
	usage_limit, usage_count, start_date, end_date, active, created_at, updated_at`

const (
	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = UPPER($1)`

	lockCouponByCodeSQL = getCouponByCodeSQL + ` FOR UPDATE`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, id`

	listCouponCodesSQL = `SELECT code FROM coupons`

	createCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateCouponSQL = `UPDATE coupons SET code = $2, discount_type = $3, discount_value = $4,
		min_order_value = $5, max_discount = $6, usage_limit = $7, start_date = $8, end_date = $9,
		active = $10, updated_at = $11
		WHERE id = $1`

	upsertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (UPPER(code)) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			min_order_value = EXCLUDED.min_order_value,
			max_discount = EXCLUDED.max_discount,
			usage_limit = EXCLUDED.usage_limit,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	// A zero usage_limit counts as unlimited, like a NULL one.
	redeemCouponSQL = `UPDATE coupons SET usage_count = usage_count + 1, updated_at = now()
		WHERE id = $1 AND active
		AND (usage_limit IS NULL OR usage_limit = 0 OR usage_count < usage_limit)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive), active or not.
// Returns coupon.ErrNotFound when no coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCoupon(ctx, r.pool, getCouponByCodeSQL, code)
}

// FindByID returns the coupon with the given id or coupon.ErrNotFound.
func (r *CouponRepository) FindByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return findCoupon(ctx, r.pool, getCouponByIDSQL, id)
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query coupons")
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, errors.Wrap(err, "scan coupons")
	}
	return coupons, nil
}

// ListCodes returns every stored coupon code.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query coupon codes")
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan coupon codes")
	}
	return codes, nil
}

// Create inserts c. Returns coupon.ErrDuplicateCode when the code is taken.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL, couponArgs(c)...)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return errors.Wrapf(err, "insert coupon %q", c.Code)
	}
	return nil
}

// Upsert inserts c or, when its code already exists, replaces the stored
// terms while keeping the existing id and usage count.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	if _, err := r.pool.Exec(ctx, upsertCouponSQL, couponArgs(c)...); err != nil {
		return errors.Wrapf(err, "upsert coupon %q", c.Code)
	}
	return nil
}

// Update stores every mutable field of c. UsageCount is left untouched.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinOrderValue, c.MaxDiscount,
		c.UsageLimit, c.StartDate, c.EndDate, c.Active, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return errors.Wrapf(err, "update coupon %q", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Delete removes the coupon with the given id.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func findCoupon(ctx context.Context, q querier, sql string, arg string) (*coupon.Coupon, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "query coupon")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan coupon")
	}
	return &c, nil
}

func couponArgs(c *coupon.Coupon) []any {
	return []any{
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinOrderValue, c.MaxDiscount,
		c.UsageLimit, c.UsageCount, c.StartDate, c.EndDate, c.Active, c.CreatedAt, c.UpdatedAt,
	}
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.DiscountValue, &c.MinOrderValue, &c.MaxDiscount,
		&c.UsageLimit, &c.UsageCount, &c.StartDate, &c.EndDate, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}
