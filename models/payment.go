package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusSucceeded PaymentStatus = "Succeeded"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

// PaymentMethodMock marks payments that never went through a gateway.
const PaymentMethodMock = "mock"

type Payment struct {
	ID                    string          `json:"id"`
	OrderID               string          `json:"orderId"`
	MethodType            string          `json:"methodType"`
	ProviderTransactionID *string         `json:"providerTransactionId"`
	Amount                decimal.Decimal `json:"amount"`
	Status                PaymentStatus   `json:"status"`
	Currency              string          `json:"currency"`
	CreatedAt             time.Time       `json:"createdAt"`
}
