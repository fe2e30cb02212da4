package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestValidate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name     string
		coupon   *Coupon
		subtotal decimal.Decimal
		wantErr  error
		wantMin  string
	}{
		{
			name:     "nil coupon is invalid",
			coupon:   nil,
			subtotal: d("100"),
			wantErr:  ErrInvalidCoupon,
		},
		{
			name: "inactive coupon is invalid regardless of other fields",
			coupon: &Coupon{
				Code:          "OFF",
				DiscountType:  DiscountPercentage,
				DiscountValue: d("10"),
				StartDate:     &futureTime,
				UsageLimit:    intPtr(1),
				UsageCount:    5,
				Active:        false,
			},
			subtotal: d("0"),
			wantErr:  ErrInvalidCoupon,
		},
		{
			name: "start date in future",
			coupon: &Coupon{
				Code:      "SOON",
				StartDate: &futureTime,
				Active:    true,
			},
			subtotal: d("100"),
			wantErr:  ErrNotActiveYet,
		},
		{
			name: "end date in past",
			coupon: &Coupon{
				Code:    "OLD",
				EndDate: &pastTime,
				Active:  true,
			},
			subtotal: d("100"),
			wantErr:  ErrExpired,
		},
		{
			name: "not active yet wins over expired",
			coupon: &Coupon{
				Code:      "BOTH",
				StartDate: &futureTime,
				EndDate:   &pastTime,
				Active:    true,
			},
			subtotal: d("100"),
			wantErr:  ErrNotActiveYet,
		},
		{
			name: "boundaries are inclusive",
			coupon: &Coupon{
				Code:      "EDGE",
				StartDate: &fixedNow,
				EndDate:   &fixedNow,
				Active:    true,
			},
			subtotal: d("100"),
		},
		{
			name: "usage limit reached",
			coupon: &Coupon{
				Code:       "LIMITED",
				UsageLimit: intPtr(1),
				UsageCount: 1,
				Active:     true,
			},
			subtotal: d("1000000"),
			wantErr:  ErrUsageLimitReached,
		},
		{
			name: "usage under limit",
			coupon: &Coupon{
				Code:       "ROOM",
				UsageLimit: intPtr(100),
				UsageCount: 99,
				Active:     true,
			},
			subtotal: d("100"),
		},
		{
			name: "zero usage limit is unlimited",
			coupon: &Coupon{
				Code:       "UNLIMITED",
				UsageLimit: intPtr(0),
				UsageCount: 9999,
				Active:     true,
			},
			subtotal: d("100"),
		},
		{
			name: "usage limit checked before minimum order value",
			coupon: &Coupon{
				Code:          "LIMITMIN",
				UsageLimit:    intPtr(2),
				UsageCount:    2,
				MinOrderValue: d("5000"),
				Active:        true,
			},
			subtotal: d("10"),
			wantErr:  ErrUsageLimitReached,
		},
		{
			name: "below minimum order value",
			coupon: &Coupon{
				Code:          "MIN",
				MinOrderValue: d("5000"),
				Active:        true,
			},
			subtotal: d("4999.99"),
			wantMin:  "Minimum order value for this coupon is 5000",
		},
		{
			name: "fractional minimum order value keeps its digits",
			coupon: &Coupon{
				Code:          "MINFRAC",
				MinOrderValue: d("99.5"),
				Active:        true,
			},
			subtotal: d("10"),
			wantMin:  "Minimum order value for this coupon is 99.5",
		},
		{
			name: "subtotal equal to minimum qualifies",
			coupon: &Coupon{
				Code:          "MINEQ",
				MinOrderValue: d("5000"),
				Active:        true,
			},
			subtotal: d("5000"),
		},
		{
			name: "valid window succeeds",
			coupon: &Coupon{
				Code:      "WINDOW",
				StartDate: &pastTime,
				EndDate:   &futureTime,
				Active:    true,
			},
			subtotal: d("100"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.coupon, tt.subtotal, fixedNow)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantMin != "":
				var minErr *MinOrderValueError
				require.ErrorAs(t, err, &minErr)
				assert.Equal(t, tt.wantMin, err.Error())
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestValidate_RejectionMessages(t *testing.T) {
	assert.Equal(t, "Invalid or inactive coupon", ErrInvalidCoupon.Error())
	assert.Equal(t, "Coupon not active yet", ErrNotActiveYet.Error())
	assert.Equal(t, "Coupon has expired", ErrExpired.Error())
	assert.Equal(t, "Coupon usage limit reached", ErrUsageLimitReached.Error())
}
