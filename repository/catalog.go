package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-svc/checkout"
	"checkout-svc/models"

	"github.com/lib/pq"
)

const pqInvalidTextRepresentation = "22P02"

// CatalogStore reads products straight from Postgres.
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, price, stock_quantity, is_active FROM products WHERE id = $1",
		id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.IsActive)

	var pqErr *pq.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.Product{}, fmt.Errorf("product %s: %w", id, checkout.ErrProductNotFound)
	case errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation:
		// Not a UUID, so it cannot name a product.
		return models.Product{}, fmt.Errorf("product %s: %w", id, checkout.ErrProductNotFound)
	case err != nil:
		return models.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}
