package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "pos-cart-storage", cfg.CartStorageKey)
	assert.Equal(t, 72*time.Hour, cfg.CartTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.CatalogDebounce())
	assert.Equal(t, 3*time.Second, cfg.RefreshMaxElapsed())
	assert.Equal(t, SaleBackendPostgres, cfg.SaleBackend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 12*time.Hour, cfg.JWTAccessTTL)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"HTTP_PORT":                    "9090",
		"KAFKA_BROKERS":                "k1:9092,k2:9092",
		"SALE_BACKEND":                 "rpc",
		"SALE_RPC_URL":                 "http://sales.internal/rpc/process_sale_transaction",
		"DB_MAX_CONN_LIFETIME_MINUTES": "5",
	})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, SaleBackendRPC, cfg.SaleBackend)
	assert.Equal(t, 5*time.Minute, cfg.Postgres().MaxConnLifetime)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"port out of range", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"rpc without url", map[string]string{"SALE_BACKEND": "rpc"}, "SALE_RPC_URL is required"},
		{"unknown backend", map[string]string{"SALE_BACKEND": "mysql"}, "SALE_BACKEND must be"},
		{"short secret in production", map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "short"}, "JWT_SECRET"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
		{"cart ttl", map[string]string{"CART_TTL_HOURS": "0"}, "CART_TTL_HOURS"},
		{"refresh window", map[string]string{"REFRESH_MAX_ELAPSED_MS": "0"}, "REFRESH_MAX_ELAPSED_MS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(tt.vars)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFrom_NotANumber(t *testing.T) {
	_, err := LoadFrom(map[string]string{"HTTP_PORT": "eighty"})
	require.Error(t, err)
}

func TestConfig_Redis(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"REDIS_ADDR": "cache:6380", "REDIS_DB": "2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Redis().Addr)
	assert.Equal(t, 2, cfg.Redis().DB)
}
