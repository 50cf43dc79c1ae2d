package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkout-svc/models"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// unreachableRedis points at a port nothing listens on, so every command
// fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

type stubCatalog struct {
	calls    int
	products map[string]models.Product
}

func (s *stubCatalog) GetProduct(_ context.Context, id string) (models.Product, error) {
	s.calls++
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, errors.New("not found")
	}
	return p, nil
}

func TestProductCache_FallsBackWhenRedisIsDown(t *testing.T) {
	catalog := &stubCatalog{products: map[string]models.Product{
		"p1": {ID: "p1", Price: decimal.RequireFromString("9.99"), StockQuantity: 3, IsActive: true},
	}}
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	c := NewProductCache(unreachableRedis(t), catalog, time.Minute, logger)

	p, err := c.GetProduct(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "9.99", p.Price.StringFixed(2))
	assert.Equal(t, 1, catalog.calls)
}

func TestProductCache_PropagatesSourceErrors(t *testing.T) {
	catalog := &stubCatalog{}
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	c := NewProductCache(unreachableRedis(t), catalog, time.Minute, logger)

	_, err := c.GetProduct(context.Background(), "missing")

	assert.Error(t, err)
}

func TestIdempotencyStore_FailsOpen(t *testing.T) {
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	s := NewIdempotencyStore(unreachableRedis(t), time.Hour, logger)

	r := s.Reserve(context.Background(), "key-1")

	assert.Equal(t, Unavailable, r.State)
	assert.Error(t, s.Complete(context.Background(), "key-1", models.CheckoutResponse{OrderID: "o1"}))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "product:p1", productKey("p1"))
	assert.Equal(t, "idempotency:checkout:abc", idempotencyKey("abc"))
}
