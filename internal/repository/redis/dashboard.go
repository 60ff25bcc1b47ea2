package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
)

// DashboardKey is where the dashboard counters are cached.
const DashboardKey = "pos:dashboard:stats"

// DashboardCache implements repository.DashboardCache using Redis.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDashboardCache(client *redis.Client, ttl time.Duration) *DashboardCache {
	return &DashboardCache{client: client, ttl: ttl}
}

// Get returns the cached counters and whether they were present.
func (c *DashboardCache) Get(ctx context.Context) (*domain.DashboardStats, bool, error) {
	data, err := c.client.Get(ctx, DashboardKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get dashboard: %w", err)
	}

	var stats domain.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, fmt.Errorf("unmarshal dashboard: %w", err)
	}
	return &stats, true, nil
}

// Set caches stats for the configured TTL.
func (c *DashboardCache) Set(ctx context.Context, stats *domain.DashboardStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal dashboard: %w", err)
	}
	if err := c.client.Set(ctx, DashboardKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set dashboard: %w", err)
	}
	return nil
}

// Invalidate drops the cached counters.
func (c *DashboardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, DashboardKey).Err(); err != nil {
		return fmt.Errorf("redis del dashboard: %w", err)
	}
	return nil
}
