package checkout

import (
	"checkout-svc/models"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept on persisted amounts.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Price computes subtotal, discount and total for verified lines.
// The discount is clamped to [0, subtotal].
func Price(lines []VerifiedLine, applied AppliedDiscount) Quote {
	subtotal := decimal.Zero
	discount := decimal.Zero

	for _, line := range lines {
		lineSubtotal := line.Subtotal()
		subtotal = subtotal.Add(lineSubtotal)

		if !applied.Applies(line.ProductID) {
			continue
		}
		discount = discount.Add(lineDiscount(*applied.Discount, line, lineSubtotal))
	}

	subtotal = subtotal.Round(MoneyPlaces)
	discount = discount.Round(MoneyPlaces)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}
}

func lineDiscount(d models.Discount, line VerifiedLine, lineSubtotal decimal.Decimal) decimal.Decimal {
	switch d.DiscountType {
	case models.DiscountTypePercentage:
		return lineSubtotal.Mul(d.Value).Div(hundred)
	case models.DiscountTypeFixedAmount:
		// per unit
		return d.Value.Mul(decimal.NewFromInt(int64(line.Quantity)))
	default:
		return decimal.Zero
	}
}
