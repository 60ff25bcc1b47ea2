package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func sampleCart() *domain.Cart {
	cart := domain.NewCart("op-1")
	cart.AddItem(domain.CartItem{
		ID:         "book-001",
		Title:      "Rayuela",
		Author:     "Julio Cortázar",
		UnitPrice:  decimal.RequireFromString("24.90"),
		StockAtAdd: 4,
	})
	cart.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return cart
}

// ---------------------------------------------------------------------------
// CartRepository
// ---------------------------------------------------------------------------

func TestCartRepository_Get_NotFound(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, "pos-cart-storage", time.Hour)

	_, err := repo.Get(context.Background(), "op-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_SaveAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, "pos-cart-storage", 72*time.Hour)
	ctx := context.Background()

	cart := sampleCart()
	ok, err := repo.SaveIfVersion(ctx, cart, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, cart.Version)

	assert.True(t, mr.Exists("pos-cart-storage:op-1"))
	assert.Equal(t, 72*time.Hour, mr.TTL("pos-cart-storage:op-1"))

	got, err := repo.Get(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Rayuela", got.Items[0].Title)
	assert.True(t, cart.Total().Equal(got.Total()))
}

func TestCartRepository_SaveIfVersion_Stale(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, "pos-cart-storage", time.Hour)
	ctx := context.Background()

	first := sampleCart()
	ok, err := repo.SaveIfVersion(ctx, first, 0)
	require.NoError(t, err)
	require.True(t, ok)

	// A second terminal still holding version 0 loses the race.
	second := sampleCart()
	second.UpdateQuantity("book-001", 5)
	ok, err = repo.SaveIfVersion(ctx, second, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, second.Version)

	got, err := repo.Get(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].Quantity)
}

func TestCartRepository_Isolation(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, "pos-cart-storage", time.Hour)
	ctx := context.Background()

	_, err := repo.SaveIfVersion(ctx, sampleCart(), 0)
	require.NoError(t, err)

	_, err = repo.Get(ctx, "op-2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, "pos-cart-storage", time.Hour)
	ctx := context.Background()

	_, err := repo.SaveIfVersion(ctx, sampleCart(), 0)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "op-1"))
	assert.False(t, mr.Exists("pos-cart-storage:op-1"))
}

func TestCartRepository_DeleteIfVersion(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, "pos-cart-storage", time.Hour)
	ctx := context.Background()

	cart := sampleCart()
	_, err := repo.SaveIfVersion(ctx, cart, 0)
	require.NoError(t, err)
	_, err = repo.SaveIfVersion(ctx, cart, 1)
	require.NoError(t, err)

	ok, err := repo.DeleteIfVersion(ctx, "op-1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("pos-cart-storage:op-1"))

	ok, err = repo.DeleteIfVersion(ctx, "op-1", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("pos-cart-storage:op-1"))
}

func TestCartRepository_Get_Corrupt(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, "pos-cart-storage", time.Hour)

	require.NoError(t, mr.Set("pos-cart-storage:op-1", "{not json"))
	_, err := repo.Get(context.Background(), "op-1")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// DashboardCache
// ---------------------------------------------------------------------------

func TestDashboardCache_Roundtrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewDashboardCache(client, time.Minute)
	ctx := context.Background()

	_, hit, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)

	stats := &domain.DashboardStats{
		TotalSales:    4,
		TotalRevenue:  decimal.RequireFromString("99.60"),
		TotalBooks:    20,
		LowStockCount: 2,
	}
	require.NoError(t, cache.Set(ctx, stats))
	assert.Equal(t, time.Minute, mr.TTL(DashboardKey))

	got, hit, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 4, got.TotalSales)
	assert.True(t, stats.TotalRevenue.Equal(got.TotalRevenue))

	require.NoError(t, cache.Invalidate(ctx))
	_, hit, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDashboardCache_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewDashboardCache(client, time.Minute)
	ctx := context.Background()

	data, _ := json.Marshal(domain.DashboardStats{TotalSales: 1})
	require.NoError(t, mr.Set(DashboardKey, string(data)))
	mr.SetTTL(DashboardKey, time.Minute)
	mr.FastForward(2 * time.Minute)

	_, hit, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
}
