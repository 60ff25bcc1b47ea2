// Package redis implements the cart store and the dashboard cache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

var errVersionMismatch = errors.New("cart version mismatch")

// CartRepository implements repository.CartRepository using Redis. Each
// operator's cart lives under "<storageKey>:<operatorID>".
type CartRepository struct {
	client     *redis.Client
	storageKey string
	ttl        time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, storageKey string, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client:     client,
		storageKey: storageKey,
		ttl:        ttl,
	}
}

func (r *CartRepository) key(operatorID string) string {
	return r.storageKey + ":" + operatorID
}

// Get retrieves the operator's cart from Redis.
func (r *CartRepository) Get(ctx context.Context, operatorID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, r.key(operatorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", operatorID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// SaveIfVersion writes cart under WATCH so the write only lands when the
// stored version still equals expectedVersion. A missing cart has version 0.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	key := r.key(cart.OperatorID)

	next := *cart
	next.Version = expectedVersion + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expectedVersion {
			return errVersionMismatch
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		cart.Version = next.Version
		return true, nil
	case errors.Is(err, errVersionMismatch), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("redis save cart: %w", err)
	}
}

// DeleteIfVersion removes the cart under WATCH, only when the stored version
// still equals expectedVersion.
func (r *CartRepository) DeleteIfVersion(ctx context.Context, operatorID string, expectedVersion int) (bool, error) {
	key := r.key(operatorID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expectedVersion {
			return errVersionMismatch
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errVersionMismatch), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("redis del cart: %w", err)
	}
}

// Delete removes the operator's cart.
func (r *CartRepository) Delete(ctx context.Context, operatorID string) error {
	if err := r.client.Del(ctx, r.key(operatorID)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get cart: %w", err)
	}
	var stored struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return 0, fmt.Errorf("unmarshal cart: %w", err)
	}
	return stored.Version, nil
}
