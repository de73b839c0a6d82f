package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart       = apierr.Validation("Cart must contain at least one item")
	ErrInvalidQuantity = apierr.Validation("Quantity must be at least 1")

	hundred = decimal.NewFromInt(100)
)

type Config struct {
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShipping:          decimal.RequireFromString("5.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// ConfigFromFloats builds a Config from the float values config files carry.
func ConfigFromFloats(threshold, flat, tax float64) Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromFloat(threshold),
		FlatShipping:          decimal.NewFromFloat(flat),
		TaxRate:               decimal.NewFromFloat(tax),
	}
}

type CartLine struct {
	BookID            string
	UnitPrice         decimal.Decimal
	OriginalUnitPrice decimal.Decimal
	Quantity          int
	InStock           bool
}

// Totals are unrounded; call Display for the client-facing values.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Display rounds every amount to cents, half-up.
func (t Totals) Display() models.OrderTotals {
	return models.OrderTotals{
		Subtotal: t.Subtotal.Round(2),
		Discount: t.Discount.Round(2),
		Shipping: t.Shipping.Round(2),
		Tax:      t.Tax.Round(2),
		Total:    t.Total.Round(2),
	}
}

type UnavailableItemError struct {
	BookIDs []string
}

func (e *UnavailableItemError) Error() string {
	return fmt.Sprintf("Items unavailable: %s", strings.Join(e.BookIDs, ", "))
}

func (e *UnavailableItemError) Kind() apierr.Kind { return apierr.KindUnavailableItem }

func (e *UnavailableItemError) Details() interface{} {
	return map[string][]string{"unavailableBookIds": e.BookIDs}
}

// Calculator is stateless; the cart is passed in on every call.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Totals prices lines with an optional coupon code ("" for none).
func (c *Calculator) Totals(lines []CartLine, couponCode string) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrEmptyCart
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity < 1 {
			return Totals{}, ErrInvalidQuantity
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	discount := decimal.Zero
	couponApplied := false
	if strings.TrimSpace(couponCode) != "" {
		coupon, err := LookupCoupon(couponCode)
		if err != nil {
			return Totals{}, err
		}
		discount = subtotal.Mul(coupon.PercentOff).Div(hundred)
		couponApplied = true
	}

	net := subtotal.Sub(discount)
	shipping := c.cfg.FlatShipping
	// a coupon never takes away free shipping the undiscounted cart already qualified for
	if net.GreaterThan(c.cfg.FreeShippingThreshold) ||
		(couponApplied && subtotal.GreaterThan(c.cfg.FreeShippingThreshold)) {
		shipping = decimal.Zero
	}
	tax := net.Mul(c.cfg.TaxRate)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    net.Add(shipping).Add(tax),
	}, nil
}

// Checkout is Totals gated on stock: any out-of-stock line fails the whole cart.
func (c *Calculator) Checkout(lines []CartLine, couponCode string) (Totals, error) {
	if err := CheckAvailability(lines); err != nil {
		return Totals{}, err
	}
	return c.Totals(lines, couponCode)
}

// CheckAvailability returns an *UnavailableItemError naming every out-of-stock line.
func CheckAvailability(lines []CartLine) error {
	var missing []string
	for _, l := range lines {
		if !l.InStock {
			missing = append(missing, l.BookID)
		}
	}
	if len(missing) > 0 {
		return &UnavailableItemError{BookIDs: missing}
	}
	return nil
}

// IsInvalidCoupon reports whether err came from an unknown coupon code.
func IsInvalidCoupon(err error) bool {
	var ic *InvalidCouponError
	return errors.As(err, &ic)
}
