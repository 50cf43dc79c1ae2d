package handlers

import (
	"context"
	"net/http"

	"checkout-svc/cache"
	"checkout-svc/checkout"
	"checkout-svc/middleware"
	"checkout-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLen = 255

type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (checkout.Receipt, error)
	PreviewDiscount(ctx context.Context, code string, items []models.CartItem) (checkout.Quote, error)
}

type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) cache.Reservation
	Complete(ctx context.Context, key string, resp models.CheckoutResponse) error
	Release(ctx context.Context, key string) error
}

// ProductInvalidator drops cached products whose stock changed.
type ProductInvalidator interface {
	Invalidate(ctx context.Context, ids ...string) error
}

type CheckoutHandler struct {
	service     CheckoutService
	idempotency IdempotencyStore
	products    ProductInvalidator
	logger      *zap.Logger
}

// NewCheckoutHandler builds the handler. idempotency and products may be nil.
func NewCheckoutHandler(service CheckoutService, idempotency IdempotencyStore, products ProductInvalidator, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:     service,
		idempotency: idempotency,
		products:    products,
		logger:      logger,
	}
}

func (h *CheckoutHandler) Checkout(c *gin.Context) {
	ctx, span := otel.Tracer("checkout-service").Start(c.Request.Context(), "CheckoutHandler")
	defer span.End()

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingErrorBody(err))
		return
	}

	var userID *string
	if id, ok := middleware.IdentityFrom(c); ok {
		userID = &id.UserID
	}

	key := c.GetHeader("Idempotency-Key")
	if len(key) > maxIdempotencyKeyLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key is too long"})
		return
	}
	reserved := false
	if key != "" && h.idempotency != nil {
		key = scopedKey(userID, key)
		switch r := h.idempotency.Reserve(ctx, key); r.State {
		case cache.Completed:
			resp := r.Response
			resp.Replayed = true
			middleware.RecordCheckout("replayed")
			c.JSON(http.StatusOK, resp)
			return
		case cache.InProgress:
			c.JSON(http.StatusConflict, gin.H{"error": "A request with this Idempotency-Key is in progress"})
			return
		case cache.Reserved:
			reserved = true
		}
	}

	receipt, err := h.service.Checkout(ctx, checkout.Request{
		UserID:    userID,
		Items:     req.CartItems,
		PromoCode: req.PromoCode,
		Shipping:  req.ShippingDetails,
	})
	middleware.RecordCheckout(checkoutResult(err))
	if err != nil {
		span.RecordError(err)
		if reserved {
			if rerr := h.idempotency.Release(context.WithoutCancel(ctx), key); rerr != nil {
				h.logger.Warn("Failed to release idempotency key", zap.Error(rerr))
			}
		}
		writeError(c, h.logger, err)
		return
	}

	resp := models.CheckoutResponse{
		OrderID:     receipt.Order.ID,
		OrderNumber: receipt.Order.OrderNumber,
		Subtotal:    receipt.Quote.Subtotal.StringFixed(checkout.MoneyPlaces),
		Discount:    receipt.Quote.Discount.StringFixed(checkout.MoneyPlaces),
		TotalAmount: receipt.Quote.Total.StringFixed(checkout.MoneyPlaces),
	}
	span.SetAttributes(attribute.String("order.id", resp.OrderID))

	if reserved {
		if err := h.idempotency.Complete(context.WithoutCancel(ctx), key, resp); err != nil {
			h.logger.Warn("Failed to store idempotency record", zap.String("order_id", resp.OrderID), zap.Error(err))
			// A pending marker left behind would answer every retry with 409.
			if rerr := h.idempotency.Release(context.WithoutCancel(ctx), key); rerr != nil {
				h.logger.Warn("Failed to release idempotency key", zap.Error(rerr))
			}
		}
	}
	h.invalidateProducts(ctx, receipt.Items)

	c.JSON(http.StatusCreated, resp)
}

func (h *CheckoutHandler) invalidateProducts(ctx context.Context, items []models.OrderItem) {
	if h.products == nil {
		return
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	if err := h.products.Invalidate(ctx, ids...); err != nil {
		h.logger.Debug("Failed to invalidate cached products", zap.Error(err))
	}
}

func scopedKey(userID *string, key string) string {
	if userID == nil {
		return "guest:" + key
	}
	return *userID + ":" + key
}

// PreviewDiscount prices a cart with a promo code without placing an order.
func (h *CheckoutHandler) PreviewDiscount(c *gin.Context) {
	ctx, span := otel.Tracer("checkout-service").Start(c.Request.Context(), "PreviewDiscountHandler")
	defer span.End()

	var req models.PromoPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingErrorBody(err))
		return
	}

	quote, err := h.service.PreviewDiscount(ctx, req.PromoCode, req.CartItems)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.PromoPreviewResponse{
		Subtotal:        quote.Subtotal.StringFixed(checkout.MoneyPlaces),
		DiscountApplied: quote.Discount.StringFixed(checkout.MoneyPlaces),
		NewTotal:        quote.Total.StringFixed(checkout.MoneyPlaces),
	})
}
