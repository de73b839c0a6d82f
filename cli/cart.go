package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/binhbb2204/litverse/internal/pricing"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/spf13/cobra"
)

var (
	cartItems  []string
	cartCoupon string
	shipTo     models.Address
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Price and place orders",
	Long: `Quote or check out a cart. Items are given as --item <book-id>[:format[:quantity]],
for example --item 42:ebook or --item 42:physical:2. The default format is physical.`,
}

var cartQuoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a cart without ordering",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := parseCartItems(cartItems)
		if err != nil {
			return err
		}
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var quote models.Quote
		req := models.QuoteRequest{Items: items, CouponCode: cartCoupon}
		if err := client.do(http.MethodPost, "/api/payments/quote", req, &quote); err != nil {
			printError("Quote failed: " + err.Error())
			return err
		}
		for _, l := range quote.Lines {
			stock := ""
			if !l.InStock {
				stock = "  (out of stock)"
			}
			fmt.Printf("%-32s %-10s %3d x %s%s%s\n", truncate(l.Title, 32), l.Format, l.Quantity, currency(), l.UnitPrice.StringFixed(2), stock)
		}
		fmt.Println()
		printTotals(quote.Totals)
		return nil
	},
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place an order",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := parseCartItems(cartItems)
		if err != nil {
			return err
		}
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			Order models.Order `json:"order"`
		}
		req := models.CheckoutRequest{Items: items, CouponCode: cartCoupon, ShippingAddress: shipTo}
		if err := client.do(http.MethodPost, "/api/payments/checkout", req, &res); err != nil {
			printError("Checkout failed: " + err.Error())
			if e, ok := err.(*apiError); ok && e.Details != nil {
				fmt.Printf("Details: %v\n", e.Details)
			}
			return err
		}
		printSuccess("Order " + res.Order.OrderNumber + " placed")
		printTotals(res.Order.Totals)
		return nil
	},
}

var cartOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List your orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			Orders []models.Order `json:"orders"`
		}
		if err := client.do(http.MethodGet, "/api/payments/orders", nil, &res); err != nil {
			printError(err.Error())
			return err
		}
		if len(res.Orders) == 0 {
			fmt.Println("No orders yet")
			return nil
		}
		for _, o := range res.Orders {
			fmt.Printf("%s  %s  %-10s %d item(s)  %s%s\n", o.OrderNumber, o.CreatedAt.Local().Format("2006-01-02"),
				o.Status, len(o.Items), currency(), o.Totals.Total.StringFixed(2))
		}
		return nil
	},
}

var cartCouponCmd = &cobra.Command{
	Use:   "coupon [code]",
	Short: "Check a coupon code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			Coupon pricing.Coupon `json:"coupon"`
		}
		if err := client.do(http.MethodGet, "/api/payments/coupons/"+url.PathEscape(args[0]), nil, &res); err != nil {
			printError(err.Error())
			return err
		}
		printSuccess(fmt.Sprintf("%s is valid: %s%% off", res.Coupon.Code, res.Coupon.PercentOff.String()))
		return nil
	},
}

func parseCartItems(args []string) ([]models.OrderItemRequest, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one --item is required")
	}
	items := make([]models.OrderItemRequest, 0, len(args))
	for _, raw := range args {
		parts := strings.Split(raw, ":")
		if len(parts) > 3 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid item %q: want <book-id>[:format[:quantity]]", raw)
		}
		item := models.OrderItemRequest{BookID: strings.TrimSpace(parts[0]), Format: "physical", Quantity: 1}
		if len(parts) > 1 && parts[1] != "" {
			item.Format = strings.ToLower(parts[1])
		}
		if len(parts) > 2 {
			q, err := strconv.Atoi(parts[2])
			if err != nil || q < 1 {
				return nil, fmt.Errorf("invalid quantity in %q", raw)
			}
			item.Quantity = q
		}
		items = append(items, item)
	}
	return items, nil
}

func printTotals(t models.OrderTotals) {
	c := currency()
	fmt.Printf("Subtotal: %s%s\n", c, t.Subtotal.StringFixed(2))
	if !t.Discount.IsZero() {
		fmt.Printf("Discount: -%s%s\n", c, t.Discount.StringFixed(2))
	}
	if t.Shipping.IsZero() {
		fmt.Println("Shipping: free")
	} else {
		fmt.Printf("Shipping: %s%s\n", c, t.Shipping.StringFixed(2))
	}
	fmt.Printf("Tax:      %s%s\n", c, t.Tax.StringFixed(2))
	fmt.Printf("Total:    %s%s\n", c, t.Total.StringFixed(2))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	for _, c := range []*cobra.Command{cartQuoteCmd, cartCheckoutCmd} {
		c.Flags().StringArrayVar(&cartItems, "item", nil, "<book-id>[:format[:quantity]], repeatable")
		c.Flags().StringVar(&cartCoupon, "coupon", "", "Coupon code")
	}
	cartCheckoutCmd.Flags().StringVar(&shipTo.Street, "street", "", "Shipping street")
	cartCheckoutCmd.Flags().StringVar(&shipTo.City, "city", "", "Shipping city")
	cartCheckoutCmd.Flags().StringVar(&shipTo.State, "state", "", "Shipping state")
	cartCheckoutCmd.Flags().StringVar(&shipTo.ZipCode, "zip", "", "Shipping postal code")
	cartCheckoutCmd.Flags().StringVar(&shipTo.Country, "country", "", "Shipping country")
	for _, f := range []string{"street", "city", "zip", "country"} {
		cartCheckoutCmd.MarkFlagRequired(f)
	}

	cartCmd.AddCommand(cartQuoteCmd)
	cartCmd.AddCommand(cartCheckoutCmd)
	cartCmd.AddCommand(cartOrdersCmd)
	cartCmd.AddCommand(cartCouponCmd)
}
