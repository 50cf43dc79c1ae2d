package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const EventOrderCreated = "order_created"

type ConfirmationItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderConfirmation is what the customer is told about a placed order.
type OrderConfirmation struct {
	OrderNumber string             `json:"order_number"`
	Items       []ConfirmationItem `json:"items"`
	Total       decimal.Decimal    `json:"total"`
}

// OrderEvent is published once an order has been committed.
type OrderEvent struct {
	EventType     string            `json:"event_type"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Confirmation  OrderConfirmation `json:"confirmation"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
