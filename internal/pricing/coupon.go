package pricing

import (
	"fmt"
	"strings"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/shopspring/decimal"
)

type Coupon struct {
	Code       string          `json:"code"`
	PercentOff decimal.Decimal `json:"percentOff"`
}

var coupons = map[string]Coupon{
	"WELCOME10": {Code: "WELCOME10", PercentOff: decimal.NewFromInt(10)},
	"SUMMER20":  {Code: "SUMMER20", PercentOff: decimal.NewFromInt(20)},
}

type InvalidCouponError struct {
	Code string
}

func (e *InvalidCouponError) Error() string {
	return fmt.Sprintf("Invalid coupon code: %s", e.Code)
}

func (e *InvalidCouponError) Kind() apierr.Kind { return apierr.KindInvalidCoupon }

// LookupCoupon resolves a code case-insensitively against the static coupon table.
func LookupCoupon(code string) (Coupon, error) {
	c, ok := coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Coupon{}, &InvalidCouponError{Code: code}
	}
	return c, nil
}
