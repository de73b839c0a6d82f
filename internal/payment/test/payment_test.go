package payment_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/book"
	"github.com/binhbb2204/litverse/internal/payment"
	"github.com/binhbb2204/litverse/internal/pricing"
	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var address = models.Address{Street: "1 Main St", City: "Springfield", ZipCode: "12345", Country: "US"}

type fixture struct {
	svc      *payment.Service
	books    *book.Repository
	inStock  models.Book
	lastCopy models.Book
	soldOut  models.Book
}

func setup(t *testing.T) fixture {
	t.Helper()
	logger.Init(logger.ERROR, false, nil)
	metrics.Reset()
	if err := database.InitDatabase(t.TempDir() + "/test.db"); err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	for _, u := range []string{"alice", "bob"} {
		_, err := database.DB.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, 'x')`, u, u, u+"@example.com")
		require.NoError(t, err)
	}

	repo := book.NewRepository(database.DB)
	mk := func(title, price string, stock int) models.Book {
		b, err := repo.Create(context.Background(), models.CreateBookRequest{
			Title: title, Author: "Someone", Pages: 100,
			Format: models.Formats{
				Physical: models.FormatOffer{Available: true, Price: decimal.RequireFromString(price), Stock: stock},
				Ebook:    models.FormatOffer{Available: true, Price: decimal.RequireFromString("4.99")},
			},
		})
		require.NoError(t, err)
		return b
	}

	return fixture{
		svc:      payment.NewService(database.DB, repo, pricing.NewCalculator(pricing.DefaultConfig())),
		books:    repo,
		inStock:  mk("Plenty", "19.99", 10),
		lastCopy: mk("Last Copy", "30.00", 1),
		soldOut:  mk("Gone", "9.99", 0),
	}
}

func TestQuote_FlagsStockAndMatchesCalculator(t *testing.T) {
	f := setup(t)
	quote, err := f.svc.Quote(context.Background(), models.QuoteRequest{
		Items: []models.OrderItemRequest{
			{BookID: f.inStock.ID, Quantity: 2},
			{BookID: f.soldOut.ID, Quantity: 1},
		},
		CouponCode: "welcome10",
	})
	require.NoError(t, err)
	require.Len(t, quote.Lines, 2)
	assert.True(t, quote.Lines[0].InStock)
	assert.False(t, quote.Lines[1].InStock)
	assert.Equal(t, "WELCOME10", quote.CouponCode)
	assert.Equal(t, "49.97", quote.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "5.00", quote.Totals.Discount.StringFixed(2))
}

func TestQuote_UnknownBookAndCoupon(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Quote(context.Background(), models.QuoteRequest{
		Items: []models.OrderItemRequest{{BookID: "missing", Quantity: 1}},
	})
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))

	_, err = f.svc.Quote(context.Background(), models.QuoteRequest{
		Items:      []models.OrderItemRequest{{BookID: f.inStock.ID, Quantity: 1}},
		CouponCode: "BOGUS",
	})
	assert.Equal(t, apierr.KindInvalidCoupon, apierr.KindOf(err))
}

func TestCheckout_PersistsOrderAndTakesStock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.svc.Checkout(ctx, "alice", models.CheckoutRequest{
		Items: []models.OrderItemRequest{
			{BookID: f.inStock.ID, Quantity: 3},
			{BookID: f.inStock.ID, Format: models.FormatEbook, Quantity: 1},
		},
		ShippingAddress: address,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "LV-"))
	assert.Equal(t, "64.96", order.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", order.Totals.Shipping.StringFixed(2))
	assert.EqualValues(t, 1, metrics.GetCheckouts())

	b, err := f.books.Get(ctx, f.inStock.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, b.Format.Physical.Stock)

	got, err := f.svc.Order(ctx, "alice", order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	require.Len(t, got.Items, 2)
	assert.Equal(t, models.FormatEbook, got.Items[1].Format)
	assert.True(t, got.Totals.Total.Equal(order.Totals.Total))
	assert.Equal(t, "Springfield", got.ShippingAddress.City)

	_, err = f.svc.Order(ctx, "bob", order.ID)
	assert.ErrorIs(t, err, payment.ErrOrderNotFound)

	orders, err := f.svc.Orders(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCheckout_OutOfStockBlocksWholeOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, "alice", models.CheckoutRequest{
		Items: []models.OrderItemRequest{
			{BookID: f.inStock.ID, Quantity: 1},
			{BookID: f.soldOut.ID, Quantity: 1},
			{BookID: f.lastCopy.ID, Quantity: 2},
		},
		ShippingAddress: address,
	})
	var unavailable *pricing.UnavailableItemError
	require.ErrorAs(t, err, &unavailable)
	assert.ElementsMatch(t, []string{f.soldOut.ID, f.lastCopy.ID}, unavailable.BookIDs)

	b, err := f.books.Get(ctx, f.inStock.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Format.Physical.Stock)

	orders, err := f.svc.Orders(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckout_LastCopyOnlySellsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := models.CheckoutRequest{
		Items:           []models.OrderItemRequest{{BookID: f.lastCopy.ID, Quantity: 1}},
		ShippingAddress: address,
	}
	_, err := f.svc.Checkout(ctx, "alice", req)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, "bob", req)
	assert.Equal(t, apierr.KindUnavailableItem, apierr.KindOf(err))
}

func TestHandler_CheckoutEnvelope(t *testing.T) {
	f := setup(t)
	gin.SetMode(gin.TestMode)
	h := payment.NewHandler(f.svc)
	router := gin.New()
	router.POST("/checkout", func(c *gin.Context) {
		c.Set("user_id", "alice")
		h.Checkout(c)
	})
	router.GET("/coupons/:code", h.ValidateCoupon)

	body, _ := json.Marshal(models.CheckoutRequest{
		Items:           []models.OrderItemRequest{{BookID: f.soldOut.ID, Quantity: 1}},
		ShippingAddress: address,
	})
	req := httptest.NewRequest("POST", "/checkout", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, 409, resp.Code)
	var env apierr.Envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.Equal(t, "/checkout", env.Path)
	assert.Contains(t, resp.Body.String(), f.soldOut.ID)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest("GET", "/coupons/summer20", nil))
	assert.Equal(t, 200, resp.Code)
	assert.Contains(t, resp.Body.String(), `"percentOff":20`)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest("GET", "/coupons/nope", nil))
	assert.Equal(t, 400, resp.Code)
}
