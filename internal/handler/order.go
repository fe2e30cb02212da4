package handler

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/abstore/internal/domain/order"
)

// PlaceOrder prices and stores an order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := decodePlaceOrder(d)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusCreated, &e)
}

// GetOrder returns the order {id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, o, err)
}

// ListOrders returns every order, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// MarkOrderPaid flags the order {id} as paid.
func (h *Handler) MarkOrderPaid(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.MarkPaid(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, o, err)
}

// MarkOrderDelivered flags the paid order {id} as delivered.
func (h *Handler) MarkOrderDelivered(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.MarkDelivered(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, o, err)
}

func (h *Handler) respondOrder(w http.ResponseWriter, r *http.Request, o *order.Order, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

func decodePlaceOrder(d *jx.Decoder) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderItems":
			req.Items, err = decodeLineItems(d)
		case "shippingAddress":
			req.ShippingAddress, err = decodeAddress(d)
		case "paymentMethod":
			req.PaymentMethod, err = readString(d)
		case "taxPrice":
			req.TaxPrice, err = readAmount(d)
		case "couponCode":
			req.CouponCode, err = readString(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return req, badRequest("Invalid order: "+err.Error(), err)
	}
	return req, nil
}

// maxQuantity bounds a line quantity to the 32-bit integer range.
var maxQuantity = decimal.NewFromInt(math.MaxInt32)

func decodeLineItems(d *jx.Decoder) ([]order.LineItem, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var items []order.LineItem
	err := d.Arr(func(d *jx.Decoder) error {
		var it order.LineItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "product", "productId":
				it.ProductID, err = readString(d)
			case "name":
				it.Name, err = readString(d)
			case "image":
				it.Image, err = readString(d)
			case "price":
				it.Price, err = readAmount(d)
			case "quantity", "qty":
				var q decimal.Decimal
				q, err = readAmount(d)
				switch {
				case err != nil:
				case !q.IsInteger():
					err = errors.Errorf("quantity %s is not a whole number", q)
				case q.Abs().GreaterThan(maxQuantity):
					err = errors.Errorf("quantity %s is out of range", q)
				}
				it.Quantity = int(q.IntPart())
			default:
				return d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

func decodeAddress(d *jx.Decoder) (order.ShippingAddress, error) {
	var a order.ShippingAddress
	if d.Next() == jx.Null {
		return a, d.Null()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "fullName":
			a.FullName, err = readString(d)
		case "address":
			a.Address, err = readString(d)
		case "city":
			a.City, err = readString(d)
		case "postalCode":
			a.PostalCode, err = readString(d)
		case "country":
			a.Country, err = readString(d)
		default:
			return d.Skip()
		}
		return err
	})
	return a, err
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	p := o.Pricing
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("orderItems", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("image", func(e *jx.Encoder) { e.Str(it.Image) })
						e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, it.Price) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		e.Field("shippingAddress", func(e *jx.Encoder) {
			a := o.ShippingAddress
			e.Obj(func(e *jx.Encoder) {
				e.Field("fullName", func(e *jx.Encoder) { e.Str(a.FullName) })
				e.Field("address", func(e *jx.Encoder) { e.Str(a.Address) })
				e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
				e.Field("postalCode", func(e *jx.Encoder) { e.Str(a.PostalCode) })
				e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
			})
		})
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		e.Field("itemsPrice", func(e *jx.Encoder) { encodeDecimal(e, p.ItemsPrice) })
		e.Field("shippingPrice", func(e *jx.Encoder) { encodeDecimal(e, p.ShippingPrice) })
		e.Field("taxPrice", func(e *jx.Encoder) { encodeDecimal(e, p.TaxPrice) })
		e.Field("discountAmount", func(e *jx.Encoder) { encodeDecimal(e, p.DiscountAmount) })
		e.Field("couponCode", func(e *jx.Encoder) {
			if p.CouponCode == "" {
				e.Null()
				return
			}
			e.Str(p.CouponCode)
		})
		e.Field("totalPrice", func(e *jx.Encoder) { encodeDecimal(e, p.TotalPrice) })
		e.Field("isPaid", func(e *jx.Encoder) { e.Bool(o.IsPaid) })
		e.Field("paidAt", func(e *jx.Encoder) { encodeOptTime(e, o.PaidAt) })
		e.Field("isDelivered", func(e *jx.Encoder) { e.Bool(o.IsDelivered) })
		e.Field("deliveredAt", func(e *jx.Encoder) { encodeOptTime(e, o.DeliveredAt) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
	})
}
