package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/abstore/internal/domain/coupon"
)

// ApplyCoupon previews a coupon against a cart subtotal.
//
// POST /api/coupons/apply {"code": "SAVE10", "subtotal": 10000}
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var (
		code     string
		subtotal = decimal.Zero
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := readString(d)
			code = v
			return err
		case "subtotal":
			v, err := readAmount(d)
			subtotal = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		h.writeError(w, r, badRequest("Invalid request body", err))
		return
	}

	q, err := h.coupons.Preview(r.Context(), code, subtotal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		c := q.Coupon
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, q.Discount) })
		e.Field("discountType", func(e *jx.Encoder) { e.Str(string(c.DiscountType)) })
		e.Field("discountValue", func(e *jx.Encoder) { encodeDecimal(e, c.DiscountValue) })
		e.Field("maxDiscount", func(e *jx.Encoder) { encodeMaxDiscount(e, c) })
		e.Field("minOrderValue", func(e *jx.Encoder) { encodeDecimal(e, c.MinOrderValue) })
		e.Field("message", func(e *jx.Encoder) { e.Str("Coupon applied successfully") })
	})
	writeJSON(w, http.StatusOK, &e)
}

// ListCoupons returns every coupon, newest first.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range coupons {
			encodeCoupon(e, &coupons[i])
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// CreateCoupon creates a coupon from the request body.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := decodeCouponPatch(d)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.coupons.Create(r.Context(), createInput(p))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCoupon(&e, c)
	writeJSON(w, http.StatusCreated, &e)
}

// UpdateCoupon applies a partial update to the coupon {id}.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := decodeCouponPatch(d)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.coupons.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCoupon(&e, c)
	writeJSON(w, http.StatusOK, &e)
}

// DeleteCoupon removes the coupon {id}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Coupon removed")
}

// createInput turns a decoded admin body into creation input. Fields absent
// from the body keep their zero values.
func createInput(p coupon.Patch) coupon.Input {
	in := coupon.Input{
		Code:          p.Code.Value,
		DiscountType:  p.DiscountType.Value,
		DiscountValue: p.DiscountValue.Value,
		MinOrderValue: p.MinOrderValue.Value,
	}
	if p.MaxDiscount.Set && !p.MaxDiscount.Null {
		in.MaxDiscount = decimal.NewNullDecimal(p.MaxDiscount.Value)
	}
	if p.UsageLimit.Set && !p.UsageLimit.Null {
		in.UsageLimit = &p.UsageLimit.Value
	}
	if p.StartDate.Set && !p.StartDate.Null {
		in.StartDate = &p.StartDate.Value
	}
	if p.EndDate.Set && !p.EndDate.Null {
		in.EndDate = &p.EndDate.Value
	}
	if p.Active.Set && !p.Active.Null {
		in.Active = &p.Active.Value
	}
	return in
}

// decodeCouponPatch decodes the admin coupon body shared by create and
// update.
func decodeCouponPatch(d *jx.Decoder) (coupon.Patch, error) {
	var p coupon.Patch
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			p.Code, err = optional(d, readString)
		case "discountType":
			var s coupon.Optional[string]
			s, err = optional(d, readString)
			p.DiscountType = coupon.Optional[coupon.DiscountType]{Set: s.Set, Null: s.Null, Value: coupon.DiscountType(s.Value)}
		case "discountValue":
			p.DiscountValue, err = optionalValid(d, readDecimal)
		case "minOrderValue":
			p.MinOrderValue, err = optionalValid(d, readDecimal)
		case "maxDiscount":
			p.MaxDiscount, err = optionalValid(d, readDecimal)
		case "usageLimit":
			p.UsageLimit, err = optionalValid(d, readInt)
		case "startDate":
			p.StartDate, err = optionalValid(d, readTime)
		case "endDate":
			p.EndDate, err = optionalValid(d, readTime)
		case "active":
			p.Active, err = optional(d, func(d *jx.Decoder) (bool, error) { return d.Bool() })
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return p, badRequest("Invalid coupon: "+err.Error(), err)
	}
	return p, nil
}

// optional reads a present field; JSON null becomes Null.
func optional[T any](d *jx.Decoder, read func(*jx.Decoder) (T, error)) (coupon.Optional[T], error) {
	if d.Next() == jx.Null {
		return coupon.Optional[T]{Set: true, Null: true}, d.Null()
	}
	v, err := read(d)
	return coupon.Some(v), err
}

// optionalValid adapts readers that report null through a valid flag.
func optionalValid[T any](d *jx.Decoder, read func(*jx.Decoder) (T, bool, error)) (coupon.Optional[T], error) {
	v, valid, err := read(d)
	if err != nil {
		return coupon.Optional[T]{}, err
	}
	if !valid {
		return coupon.Optional[T]{Set: true, Null: true}, nil
	}
	return coupon.Some(v), nil
}

func encodeMaxDiscount(e *jx.Encoder, c *coupon.Coupon) {
	if !c.MaxDiscount.Valid {
		e.Null()
		return
	}
	encodeDecimal(e, c.MaxDiscount.Decimal)
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("discountType", func(e *jx.Encoder) { e.Str(string(c.DiscountType)) })
		e.Field("discountValue", func(e *jx.Encoder) { encodeDecimal(e, c.DiscountValue) })
		e.Field("minOrderValue", func(e *jx.Encoder) { encodeDecimal(e, c.MinOrderValue) })
		e.Field("maxDiscount", func(e *jx.Encoder) { encodeMaxDiscount(e, c) })
		e.Field("usageLimit", func(e *jx.Encoder) {
			if c.UsageLimit == nil {
				e.Null()
				return
			}
			e.Int(*c.UsageLimit)
		})
		e.Field("usageCount", func(e *jx.Encoder) { e.Int(c.UsageCount) })
		e.Field("startDate", func(e *jx.Encoder) { encodeOptTime(e, c.StartDate) })
		e.Field("endDate", func(e *jx.Encoder) { encodeOptTime(e, c.EndDate) })
		e.Field("active", func(e *jx.Encoder) { e.Bool(c.Active) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, c.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, c.UpdatedAt) })
	})
}
