package checkout

import (
	"context"
	"errors"
	"fmt"

	"checkout-svc/models"

	"github.com/shopspring/decimal"
)

// VerifiedLine is a cart line priced from the catalog, never from the client.
type VerifiedLine struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

func (l VerifiedLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Verifier struct {
	catalog CatalogReader
}

func NewVerifier(catalog CatalogReader) *Verifier {
	return &Verifier{catalog: catalog}
}

// Verify checks every line against the catalog and returns them in input
// order. Lines naming the same product are checked against stock together.
func (v *Verifier) Verify(ctx context.Context, items []models.CartItem) ([]VerifiedLine, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidCart)
	}

	requested := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %s must be at least 1", ErrInvalidCart, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}

	products := make(map[string]models.Product, len(requested))
	lines := make([]VerifiedLine, 0, len(items))
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			var err error
			p, err = v.catalog.GetProduct(ctx, item.ProductID)
			if errors.Is(err, ErrProductNotFound) {
				return nil, fmt.Errorf("product %s does not exist: %w", item.ProductID, ErrProductUnavailable)
			}
			if err != nil {
				return nil, fmt.Errorf("look up product %s: %w", item.ProductID, err)
			}
			products[item.ProductID] = p
		}

		if !p.IsActive {
			return nil, fmt.Errorf("product %s is not for sale: %w", item.ProductID, ErrProductUnavailable)
		}
		if p.StockQuantity < requested[item.ProductID] {
			return nil, fmt.Errorf("product %s has %d in stock, %d requested: %w",
				item.ProductID, p.StockQuantity, requested[item.ProductID], ErrProductUnavailable)
		}

		lines = append(lines, VerifiedLine{
			ProductID: item.ProductID,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}
