package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItemRequest struct {
	BookID   string `json:"bookId" binding:"required"`
	Format   string `json:"format" binding:"omitempty,oneof=physical ebook audiobook"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=99"`
}

type QuoteRequest struct {
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,max=50,dive"`
	CouponCode string             `json:"couponCode" binding:"omitempty,max=32"`
}

type Address struct {
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode" binding:"required"`
	Country string `json:"country" binding:"required"`
}

type CheckoutRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,max=50,dive"`
	CouponCode      string             `json:"couponCode" binding:"omitempty,max=32"`
	ShippingAddress Address            `json:"shippingAddress" binding:"required"`
}

type OrderLine struct {
	BookID            string          `json:"bookId"`
	Title             string          `json:"title"`
	Format            string          `json:"format"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	OriginalUnitPrice decimal.Decimal `json:"originalUnitPrice"`
	Quantity          int             `json:"quantity"`
	InStock           bool            `json:"inStock"`
}

type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

type Quote struct {
	Lines      []OrderLine `json:"items"`
	CouponCode string      `json:"couponCode,omitempty"`
	Totals     OrderTotals `json:"totals"`
}

type Order struct {
	ID              string      `json:"id"`
	OrderNumber     string      `json:"orderNumber"`
	UserID          string      `json:"userId"`
	Status          string      `json:"status"`
	CouponCode      string      `json:"couponCode,omitempty"`
	Items           []OrderLine `json:"items"`
	Totals          OrderTotals `json:"totals"`
	ShippingAddress Address     `json:"shippingAddress"`
	CreatedAt       time.Time   `json:"date"`
}
