package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"checkout-svc/middleware"
	"checkout-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type OrderReader interface {
	FindOrderDetails(ctx context.Context, orderID string) (models.OrderDetails, error)
	ListOrders(ctx context.Context, userID *string, limit, offset int) ([]models.OrderSummary, error)
}

type StatusChanger interface {
	Transition(ctx context.Context, orderID string, next models.OrderStatus) (models.StatusHistory, error)
}

type OrderHandler struct {
	orders    OrderReader
	lifecycle StatusChanger
	logger    *zap.Logger
}

func NewOrderHandler(orders OrderReader, lifecycle StatusChanger, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, span := otel.Tracer("checkout-service").Start(c.Request.Context(), "ListOrders")
	defer span.End()

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must not be negative"})
		return
	}

	var owner *string
	if !id.IsAdmin() {
		owner = &id.UserID
	}

	orders, err := h.orders.ListOrders(ctx, owner, limit, offset)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "limit": limit, "offset": offset})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("checkout-service").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	orderID := c.Param("id")
	span.SetAttributes(attribute.String("order.id", orderID))

	details, err := h.orders.FindOrderDetails(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}

	if !id.IsAdmin() && (details.UserID == nil || *details.UserID != id.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.JSON(http.StatusOK, details)
}

// UpdateStatus is admin only; the route must be guarded by RequireRole.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx, span := otel.Tracer("checkout-service").Start(c.Request.Context(), "UpdateOrderStatus")
	defer span.End()

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingErrorBody(err))
		return
	}

	status, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
		return
	}

	orderID := c.Param("id")
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", string(status)),
	)

	entry, err := h.lifecycle.Transition(ctx, orderID, status)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	middleware.RecordStatusTransition(string(status))

	c.JSON(http.StatusOK, gin.H{
		"orderId":   orderID,
		"status":    entry.Status,
		"changedAt": entry.CreatedAt.Format(time.RFC3339),
	})
}

func queryInt(c *gin.Context, key string, defaultValue int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}
