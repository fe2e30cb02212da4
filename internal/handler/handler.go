// Package handler serves the storefront and admin HTTP API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/abstore/internal/domain/auth"
	"github.com/xenking/abstore/internal/domain/coupon"
	"github.com/xenking/abstore/internal/domain/order"
	"github.com/xenking/abstore/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// APIKeyPepper is the HMAC key used to hash admin API keys.
	APIKeyPepper string
}

// Handler serves HTTP requests, delegating business logic to the coupon and
// order services.
type Handler struct {
	coupons  *coupon.Service
	orders   *order.Service
	products product.Repository
	apikeys  auth.Repository

	pepper       string
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	coupons *coupon.Service,
	orders *order.Service,
	products product.Repository,
	apikeys auth.Repository,
) *Handler {
	return &Handler{
		coupons:      coupons,
		orders:       orders,
		products:     products,
		apikeys:      apikeys,
		pepper:       cfg.APIKeyPepper,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes registers the API on r. applyLimit guards the public coupon
// preview; nil leaves it unlimited.
func (h *Handler) Routes(r chi.Router, applyLimit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if applyLimit != nil {
			r.Use(applyLimit)
		}
		r.Post("/api/coupons/apply", h.ApplyCoupon)
	})

	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)

	r.Post("/api/orders", h.PlaceOrder)
	r.Get("/api/orders/{id}", h.GetOrder)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAdmin)

		r.Get("/api/coupons", h.ListCoupons)
		r.Post("/api/coupons", h.CreateCoupon)
		r.Put("/api/coupons/{id}", h.UpdateCoupon)
		r.Delete("/api/coupons/{id}", h.DeleteCoupon)

		r.Get("/api/admin/orders", h.ListOrders)
		r.Put("/api/admin/orders/{id}/pay", h.MarkOrderPaid)
		r.Put("/api/admin/orders/{id}/deliver", h.MarkOrderDelivered)
	})
}
