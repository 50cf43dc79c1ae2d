package handlers

import (
	"errors"
	"net/http"

	"checkout-svc/checkout"
	"checkout-svc/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// retryAfterSeconds is sent with 503 responses for transaction timeouts.
const retryAfterSeconds = "1"

// writeError maps checkout errors to HTTP responses. Anything it does not
// recognise is logged and reported as a 500 without details.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, checkout.ErrInvalidCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart", "detail": err.Error()})
	case errors.Is(err, checkout.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
	case errors.Is(err, checkout.ErrProductUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "Product unavailable", "detail": err.Error()})
	case errors.Is(err, checkout.ErrInsufficientStock), errors.Is(err, checkout.ErrTxConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Stock changed while placing the order", "retryable": true})
	case errors.Is(err, checkout.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid status transition", "detail": err.Error()})
	case errors.Is(err, checkout.ErrTxTimeout):
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service busy, try again", "retryable": true})
	case errors.Is(err, checkout.ErrDiscountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid or inactive promo code"})
	case errors.Is(err, checkout.ErrDiscountExpired):
		c.JSON(http.StatusNotFound, gin.H{"error": "Promo code has expired"})
	case errors.Is(err, checkout.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	default:
		logger.Error("Request failed",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// checkoutResult labels a checkout outcome for metrics.
func checkoutResult(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, checkout.ErrInvalidCart), errors.Is(err, checkout.ErrProductUnavailable):
		return "rejected"
	case errors.Is(err, checkout.ErrInsufficientStock), errors.Is(err, checkout.ErrTxConflict):
		return "conflict"
	case errors.Is(err, checkout.ErrTxTimeout):
		return "timeout"
	}
	return "error"
}
