package models

import "github.com/shopspring/decimal"

// Product is the slice of a catalog product the checkout engine reads.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	IsActive      bool            `json:"isActive"`
}
