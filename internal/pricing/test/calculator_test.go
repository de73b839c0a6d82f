package pricing_test

import (
	"testing"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(id, price string, qty int, inStock bool) pricing.CartLine {
	return pricing.CartLine{BookID: id, UnitPrice: money(price), OriginalUnitPrice: money(price), Quantity: qty, InStock: inStock}
}

func TestTotals_Welcome10Example(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	totals, err := calc.Totals([]pricing.CartLine{line("b1", "19.99", 2, true)}, "WELCOME10")
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(money("39.98")), totals.Subtotal.String())
	assert.True(t, totals.Discount.Equal(money("3.998")), totals.Discount.String())
	assert.True(t, totals.Shipping.Equal(money("5.99")), totals.Shipping.String())
	assert.True(t, totals.Tax.Equal(money("2.87856")), totals.Tax.String())

	display := totals.Display()
	assert.Equal(t, "44.85", display.Total.StringFixed(2))
	assert.Equal(t, "4", display.Discount.String())
	assert.Equal(t, "2.88", display.Tax.String())
}

func TestTotals_Table(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	cases := []struct {
		name     string
		lines    []pricing.CartLine
		coupon   string
		shipping string
		total    string
	}{
		{"under threshold pays shipping", []pricing.CartLine{line("a", "10.00", 1, true)}, "", "5.99", "16.79"},
		{"exactly threshold pays shipping", []pricing.CartLine{line("a", "25.00", 2, true)}, "", "5.99", "59.99"},
		{"over threshold ships free", []pricing.CartLine{line("a", "30.00", 2, true)}, "", "0", "64.80"},
		{"summer coupon keeps earned free shipping", []pricing.CartLine{line("a", "55.00", 1, true)}, "summer20", "0", "47.52"},
		{"multiple lines", []pricing.CartLine{line("a", "12.50", 2, true), line("b", "8.00", 1, true)}, "", "5.99", "41.63"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals, err := calc.Totals(tc.lines, tc.coupon)
			require.NoError(t, err)
			d := totals.Display()
			assert.True(t, d.Shipping.Equal(money(tc.shipping)), "shipping %s", d.Shipping)
			assert.True(t, d.Total.Equal(money(tc.total)), "total %s", d.Total)
		})
	}
}

func TestTotals_InvalidCoupon(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	_, err := calc.Totals([]pricing.CartLine{line("a", "10.00", 1, true)}, "FREEBOOKS")
	require.Error(t, err)
	assert.True(t, pricing.IsInvalidCoupon(err))
	assert.Equal(t, apierr.KindInvalidCoupon, apierr.KindOf(err))
}

func TestTotals_RejectsEmptyAndBadQuantity(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	_, err := calc.Totals(nil, "")
	assert.ErrorIs(t, err, pricing.ErrEmptyCart)

	_, err = calc.Totals([]pricing.CartLine{line("a", "10.00", 0, true)}, "")
	assert.ErrorIs(t, err, pricing.ErrInvalidQuantity)
}

func TestCheckout_ListsEveryUnavailableLine(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	_, err := calc.Checkout([]pricing.CartLine{
		line("a", "10.00", 1, false),
		line("b", "10.00", 1, true),
		line("c", "10.00", 1, false),
	}, "NOPE")

	var unavailable *pricing.UnavailableItemError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"a", "c"}, unavailable.BookIDs)
}

func TestLookupCoupon(t *testing.T) {
	c, err := pricing.LookupCoupon(" welcome10 ")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", c.Code)
	assert.True(t, c.PercentOff.Equal(decimal.NewFromInt(10)))
}

func cartGen() *rapid.Generator[[]pricing.CartLine] {
	return rapid.Custom(func(t *rapid.T) []pricing.CartLine {
		n := rapid.IntRange(1, 6).Draw(t, "lines")
		lines := make([]pricing.CartLine, n)
		for i := range lines {
			cents := rapid.Int64Range(1, 20000).Draw(t, "cents")
			price := decimal.New(cents, -2)
			lines[i] = pricing.CartLine{
				BookID:            rapid.StringMatching(`[a-z]{4}`).Draw(t, "id"),
				UnitPrice:         price,
				OriginalUnitPrice: price,
				Quantity:          rapid.IntRange(1, 10).Draw(t, "qty"),
				InStock:           true,
			}
		}
		return lines
	})
}

func TestProperty_NoCouponTotalIdentity(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	rapid.Check(t, func(t *rapid.T) {
		lines := cartGen().Draw(t, "cart")
		totals, err := calc.Totals(lines, "")
		if err != nil {
			t.Fatalf("totals: %v", err)
		}
		if !totals.Discount.IsZero() {
			t.Fatalf("discount without coupon: %s", totals.Discount)
		}
		if !totals.Total.Equal(totals.Subtotal.Add(totals.Shipping).Add(totals.Tax)) {
			t.Fatalf("total %s != subtotal+shipping+tax", totals.Total)
		}
	})
}

func TestProperty_CouponNeverIncreasesTotal(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	rapid.Check(t, func(t *rapid.T) {
		lines := cartGen().Draw(t, "cart")
		code := rapid.SampledFrom([]string{"WELCOME10", "SUMMER20"}).Draw(t, "coupon")
		plain, err := calc.Totals(lines, "")
		if err != nil {
			t.Fatalf("totals: %v", err)
		}
		couponed, err := calc.Totals(lines, code)
		if err != nil {
			t.Fatalf("totals with coupon: %v", err)
		}
		if couponed.Total.GreaterThan(plain.Total) {
			t.Fatalf("coupon %s raised total from %s to %s", code, plain.Total, couponed.Total)
		}
	})
}

func TestProperty_AnyOutOfStockLineBlocksCheckout(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	rapid.Check(t, func(t *rapid.T) {
		lines := cartGen().Draw(t, "cart")
		idx := rapid.IntRange(0, len(lines)-1).Draw(t, "outOfStock")
		lines[idx].InStock = false
		_, err := calc.Checkout(lines, rapid.SampledFrom([]string{"", "WELCOME10", "BOGUS"}).Draw(t, "coupon"))
		if apierr.KindOf(err) != apierr.KindUnavailableItem {
			t.Fatalf("expected unavailable item error, got %v", err)
		}
	})
}
