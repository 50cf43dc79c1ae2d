package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus matches s case-insensitively against the known statuses.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range orderStatuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) Valid() bool {
	for _, st := range orderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// ShippingDetails is copied onto the order at creation time and never
// follows later profile changes.
type ShippingDetails struct {
	Name          string `json:"name" binding:"required,max=255"`
	Email         string `json:"email" binding:"required,email,max=255"`
	PhoneNumber   string `json:"phoneNumber,omitempty" binding:"omitempty,max=50"`
	AddressLine1  string `json:"addressLine1,omitempty" binding:"omitempty,max=255"`
	City          string `json:"city,omitempty" binding:"omitempty,max=100"`
	StateProvince string `json:"stateProvince,omitempty" binding:"omitempty,max=100"`
	PostalCode    string `json:"postalCode,omitempty" binding:"omitempty,max=20"`
	Country       string `json:"country,omitempty" binding:"omitempty,max=100"`
}

type Order struct {
	ID          string          `json:"id"`
	UserID      *string         `json:"userId"`
	OrderNumber string          `json:"orderNumber"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Shipping    ShippingDetails `json:"shipping"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"orderId"`
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName,omitempty"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

type StatusHistory struct {
	ID        string      `json:"id"`
	OrderID   string      `json:"orderId"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

type OrderDetails struct {
	Order
	Items   []OrderItem     `json:"items"`
	History []StatusHistory `json:"history"`
}

type OrderSummary struct {
	ID          string          `json:"id"`
	UserID      *string         `json:"userId"`
	OrderNumber string          `json:"orderNumber"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int             `json:"totalItems"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type CartItem struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gte=1,lte=1000"`
}

type CheckoutRequest struct {
	CartItems       []CartItem      `json:"cartItems" binding:"required,min=1,max=100,dive"`
	PromoCode       string          `json:"promoCode" binding:"omitempty,max=64"`
	ShippingDetails ShippingDetails `json:"shippingDetails" binding:"required"`
}

type CheckoutResponse struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Subtotal    string `json:"subtotal,omitempty"`
	Discount    string `json:"discountApplied,omitempty"`
	TotalAmount string `json:"totalAmount,omitempty"`
	Replayed    bool   `json:"replayed,omitempty"`
}

type PromoPreviewRequest struct {
	PromoCode string     `json:"promoCode" binding:"required,max=64"`
	CartItems []CartItem `json:"cartItems" binding:"required,min=1,max=100,dive"`
}

type PromoPreviewResponse struct {
	Subtotal        string `json:"subtotal"`
	DiscountApplied string `json:"discountApplied"`
	NewTotal        string `json:"newTotal"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,max=50"`
}
