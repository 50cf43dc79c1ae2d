package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-svc/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pendingMarker = "pending"

type ReservationState int

const (
	// Reserved means the caller owns the key and must Complete or Release it.
	Reserved ReservationState = iota
	// InProgress means another request holds the key.
	InProgress
	// Completed means the key already produced Response.
	Completed
	// Unavailable means Redis could not be reached; the caller proceeds
	// without idempotency.
	Unavailable
)

type Reservation struct {
	State    ReservationState
	Response models.CheckoutResponse
}

// IdempotencyStore remembers checkout responses by Idempotency-Key.
type IdempotencyStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, logger: logger}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:checkout:%s", key)
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string) Reservation {
	ok, err := s.rdb.SetNX(ctx, idempotencyKey(key), pendingMarker, s.ttl).Result()
	if err != nil {
		s.logger.Warn("Idempotency store unavailable", zap.String("idempotency_key", key), zap.Error(err))
		return Reservation{State: Unavailable}
	}
	if ok {
		return Reservation{State: Reserved}
	}

	value, err := s.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; let the caller try again.
		return Reservation{State: InProgress}
	}
	if err != nil {
		s.logger.Warn("Idempotency store unavailable", zap.String("idempotency_key", key), zap.Error(err))
		return Reservation{State: Unavailable}
	}
	if value == pendingMarker {
		return Reservation{State: InProgress}
	}

	var resp models.CheckoutResponse
	if err := json.Unmarshal([]byte(value), &resp); err != nil {
		s.logger.Error("Corrupt idempotency record", zap.String("idempotency_key", key), zap.Error(err))
		return Reservation{State: InProgress}
	}
	return Reservation{State: Completed, Response: resp}
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp models.CheckoutResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	return s.rdb.Set(ctx, idempotencyKey(key), data, s.ttl).Err()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, idempotencyKey(key)).Err()
}
