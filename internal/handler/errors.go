package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/abstore/internal/domain/coupon"
	"github.com/xenking/abstore/internal/domain/order"
	"github.com/xenking/abstore/internal/domain/product"
)

// badRequestErrors are business rejections answered with 400 and their own
// message.
var badRequestErrors = []error{
	coupon.ErrInvalidCoupon,
	coupon.ErrNotActiveYet,
	coupon.ErrExpired,
	coupon.ErrUsageLimitReached,
	coupon.ErrCodeRequired,
	coupon.ErrDuplicateCode,
	order.ErrEmptyItems,
	order.ErrNotPaid,
}

var notFoundErrors = []error{
	coupon.ErrNotFound,
	order.ErrNotFound,
	product.ErrNotFound,
}

// errorStatus maps err to a status code and the message shown to clients.
func errorStatus(err error) (int, string) {
	var (
		reqErr   *RequestError
		minErr   *coupon.MinOrderValueError
		fieldErr *coupon.FieldError
		itemErr  *order.InvalidLineItemError
	)
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, errUnauthorized.Error()
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.Msg
	case errors.As(err, &minErr):
		return http.StatusBadRequest, minErr.Error()
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, fieldErr.Error()
	case errors.As(err, &itemErr):
		return http.StatusBadRequest, itemErr.Error()
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound, target.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeMessage(w, status, msg)
}
