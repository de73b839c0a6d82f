package payment

import (
	"net/http"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/pricing"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Quote prices a cart for display.
func (h *Handler) Quote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	quote, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Checkout places an order for the authenticated user.
func (h *Handler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.FromBinding(err))
		return
	}
	order, err := h.service.Checkout(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": order})
}

func (h *Handler) Orders(c *gin.Context) {
	orders, err := h.service.Orders(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) Order(c *gin.Context) {
	order, err := h.service.Order(c.Request.Context(), c.GetString("user_id"), c.Param("orderId"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ValidateCoupon reports the discount behind a coupon code.
func (h *Handler) ValidateCoupon(c *gin.Context) {
	coupon, err := pricing.LookupCoupon(c.Param("code"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "coupon": coupon})
}
