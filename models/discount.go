package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

type Discount struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Description  string          `json:"description,omitempty"`
	DiscountType DiscountType    `json:"discountType"`
	Value        decimal.Decimal `json:"value"`
	StartDate    *time.Time      `json:"startDate,omitempty"`
	EndDate      *time.Time      `json:"endDate,omitempty"`
	IsActive     bool            `json:"isActive"`
}

// Started reports whether now is at or after the start of the window.
// A nil start date is unbounded.
func (d Discount) Started(now time.Time) bool {
	return d.StartDate == nil || !now.Before(*d.StartDate)
}

// Ended reports whether now is past the end of the window.
func (d Discount) Ended(now time.Time) bool {
	return d.EndDate != nil && now.After(*d.EndDate)
}
