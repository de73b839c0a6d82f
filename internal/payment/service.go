package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/book"
	"github.com/binhbb2204/litverse/internal/pricing"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const StatusConfirmed = "confirmed"

var ErrOrderNotFound = apierr.NotFound("Order not found")

type Service struct {
	db    *sql.DB
	books *book.Repository
	calc  *pricing.Calculator
	now   func() time.Time
}

func NewService(db *sql.DB, books *book.Repository, calc *pricing.Calculator) *Service {
	return &Service{db: db, books: books, calc: calc, now: time.Now}
}

// resolve prices each requested item against the catalog.
func (s *Service) resolve(ctx context.Context, get func(context.Context, string) (models.Book, error), items []models.OrderItemRequest) ([]models.OrderLine, []pricing.CartLine, error) {
	lines := make([]models.OrderLine, 0, len(items))
	cart := make([]pricing.CartLine, 0, len(items))
	for _, it := range items {
		format := it.Format
		if format == "" {
			format = models.FormatPhysical
		}
		b, err := get(ctx, it.BookID)
		if err != nil {
			if errors.Is(err, book.ErrBookNotFound) {
				return nil, nil, apierr.NotFound("Book not found: " + it.BookID)
			}
			return nil, nil, err
		}
		offer, ok := b.Format.Offer(format)
		if !ok {
			return nil, nil, apierr.Validation("Unsupported format: " + format)
		}
		inStock := offer.Available
		if format == models.FormatPhysical {
			inStock = inStock && offer.Stock >= it.Quantity
		}
		lines = append(lines, models.OrderLine{
			BookID:            b.ID,
			Title:             b.Title,
			Format:            format,
			UnitPrice:         offer.Price,
			OriginalUnitPrice: offer.Price,
			Quantity:          it.Quantity,
			InStock:           inStock,
		})
		cart = append(cart, pricing.CartLine{
			BookID:            b.ID,
			UnitPrice:         offer.Price,
			OriginalUnitPrice: offer.Price,
			Quantity:          it.Quantity,
			InStock:           inStock,
		})
	}
	return lines, cart, nil
}

// Quote prices a cart without reserving anything. Out-of-stock lines are flagged, not rejected.
func (s *Service) Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	lines, cart, err := s.resolve(ctx, s.books.Get, req.Items)
	if err != nil {
		return nil, err
	}
	totals, err := s.calc.Totals(cart, req.CouponCode)
	if err != nil {
		return nil, err
	}
	return &models.Quote{Lines: lines, CouponCode: normalizeCoupon(req.CouponCode), Totals: totals.Display()}, nil
}

// Checkout prices the cart, takes physical stock and persists the order in one transaction.
func (s *Service) Checkout(ctx context.Context, userID string, req models.CheckoutRequest) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	get := func(ctx context.Context, id string) (models.Book, error) { return s.books.GetTx(ctx, tx, id) }
	lines, cart, err := s.resolve(ctx, get, req.Items)
	if err != nil {
		return nil, err
	}
	totals, err := s.calc.Checkout(cart, req.CouponCode)
	if err != nil {
		return nil, err
	}

	var short []string
	for _, l := range lines {
		if l.Format != models.FormatPhysical {
			continue
		}
		ok, err := book.DecrementStock(ctx, tx, l.BookID, l.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			short = append(short, l.BookID)
		}
	}
	if len(short) > 0 {
		return nil, &pricing.UnavailableItemError{BookIDs: short}
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:              uuid.NewString(),
		OrderNumber:     orderNumber(now),
		UserID:          userID,
		Status:          StatusConfirmed,
		CouponCode:      normalizeCoupon(req.CouponCode),
		Items:           lines,
		Totals:          totals.Display(),
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
	}
	if err := insertOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.IncrementCheckouts()
	logger.Info("checkout_completed", "user_id", userID, "order_number", order.OrderNumber,
		"items", len(lines), "total", order.Totals.Total.StringFixed(2))
	return order, nil
}

func normalizeCoupon(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func orderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("LV-%s-%s", now.Format("20060102"), suffix)
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *models.Order) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	t := o.Totals
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, user_id, status, coupon_code,
			subtotal, discount, shipping, tax, total, shipping_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.CouponCode,
		t.Subtotal.String(), t.Discount.String(), t.Shipping.String(), t.Tax.String(), t.Total.String(),
		string(addr), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i, l := range o.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, book_id, title, format, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, l.BookID, l.Title, l.Format, l.UnitPrice.String(), l.Quantity)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

const orderColumns = `id, order_number, user_id, status, coupon_code,
	subtotal, discount, shipping, tax, total, shipping_address, created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (models.Order, error) {
	var o models.Order
	var sub, disc, ship, tax, total, addr string
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.CouponCode,
		&sub, &disc, &ship, &tax, &total, &addr, &o.CreatedAt); err != nil {
		return o, err
	}
	amounts := []*decimal.Decimal{&o.Totals.Subtotal, &o.Totals.Discount, &o.Totals.Shipping, &o.Totals.Tax, &o.Totals.Total}
	for i, raw := range []string{sub, disc, ship, tax, total} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return o, fmt.Errorf("decode amount: %w", err)
		}
		*amounts[i] = d
	}
	if addr != "" {
		if err := json.Unmarshal([]byte(addr), &o.ShippingAddress); err != nil {
			return o, fmt.Errorf("decode address: %w", err)
		}
	}
	return o, nil
}

func (s *Service) loadItems(ctx context.Context, o *models.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, title, format, unit_price, quantity
		FROM order_items WHERE order_id = ? ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	o.Items = []models.OrderLine{}
	for rows.Next() {
		var l models.OrderLine
		var price string
		if err := rows.Scan(&l.BookID, &l.Title, &l.Format, &price, &l.Quantity); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("decode unit price: %w", err)
		}
		l.OriginalUnitPrice = l.UnitPrice
		l.InStock = true
		o.Items = append(o.Items, l)
	}
	return rows.Err()
}

// Orders lists a user's orders, newest first.
func (s *Service) Orders(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE user_id = ? ORDER BY created_at DESC, order_number DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := s.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Order returns one order; other users' orders are reported as missing.
func (s *Service) Order(ctx context.Context, userID, orderID string) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE (id = ? OR order_number = ?) AND user_id = ?`, orderID, orderID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := s.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
