package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-svc/checkout"
	"checkout-svc/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProductCache is a read-through cache in front of a CatalogReader. It only
// serves the promo preview: stock read from here may be stale, so checkout
// verification always goes to the source.
type ProductCache struct {
	rdb    *redis.Client
	next   checkout.CatalogReader
	ttl    time.Duration
	logger *zap.Logger
}

func NewProductCache(rdb *redis.Client, next checkout.CatalogReader, ttl time.Duration, logger *zap.Logger) *ProductCache {
	return &ProductCache{rdb: rdb, next: next, ttl: ttl, logger: logger}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func (c *ProductCache) GetProduct(ctx context.Context, id string) (models.Product, error) {
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	switch {
	case err == nil:
		var p models.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return p, nil
		}
		c.logger.Warn("Discarding unreadable cached product", zap.String("product_id", id))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Product cache unavailable", zap.String("product_id", id), zap.Error(err))
	}

	p, err := c.next.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, productKey(id), data, c.ttl).Err(); err != nil {
			c.logger.Debug("Failed to cache product", zap.String("product_id", id), zap.Error(err))
		}
	}
	return p, nil
}

// Invalidate drops a cached product, typically after its stock changed.
func (c *ProductCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
