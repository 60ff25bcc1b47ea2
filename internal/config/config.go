package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/SkyToti/SistemaLibreria/pkg/config"
	"github.com/SkyToti/SistemaLibreria/pkg/database"
)

// Sale backends.
const (
	SaleBackendPostgres = "postgres"
	SaleBackendRPC      = "rpc"
)

// Config holds all configuration for the POS API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"libreria"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"libreria"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"libreria"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"15"`
	SlowQueryThresholdMs  int   `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"500"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Cart
	CartTTLHours   int    `env:"CART_TTL_HOURS" envDefault:"72"`
	CartStorageKey string `env:"CART_STORAGE_KEY" envDefault:"pos-cart-storage"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Auth
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTAccessTTL   time.Duration `env:"JWT_ACCESS_TTL" envDefault:"12h"`
	LoginRateRPS   float64       `env:"LOGIN_RATE_RPS" envDefault:"1"`
	LoginRateBurst int           `env:"LOGIN_RATE_BURST" envDefault:"5"`
	BootstrapEmail string        `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapPass  string        `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Sale transaction backend
	SaleBackend    string        `env:"SALE_BACKEND" envDefault:"postgres"`
	SaleRPCURL     string        `env:"SALE_RPC_URL" envDefault:""`
	SaleRPCTimeout time.Duration `env:"SALE_RPC_TIMEOUT" envDefault:"10s"`

	// POS behaviour
	CatalogDebounceMs   int           `env:"CATALOG_DEBOUNCE_MS" envDefault:"500"`
	RefreshMaxElapsedMs int           `env:"REFRESH_MAX_ELAPSED_MS" envDefault:"3000"`
	DashboardCacheTTL   time.Duration `env:"DASHBOARD_CACHE_TTL" envDefault:"1m"`

	// Pprof debug endpoints (IP allowlist in CIDR notation, empty disables)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load pos config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from vars instead of the environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFromMap(cfg, vars); err != nil {
		return nil, fmt.Errorf("load pos config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.CartStorageKey == "" {
		return fmt.Errorf("CART_STORAGE_KEY is required")
	}
	if c.CartTTLHours <= 0 {
		return fmt.Errorf("CART_TTL_HOURS must be > 0, got %d", c.CartTTLHours)
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.Environment != "development" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters outside development")
	}
	if c.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if c.LoginRateRPS <= 0 || c.LoginRateBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_RPS and LOGIN_RATE_BURST must be > 0")
	}
	switch c.SaleBackend {
	case SaleBackendPostgres:
	case SaleBackendRPC:
		if c.SaleRPCURL == "" {
			return fmt.Errorf("SALE_RPC_URL is required when SALE_BACKEND=rpc")
		}
	default:
		return fmt.Errorf("SALE_BACKEND must be %q or %q, got %q", SaleBackendPostgres, SaleBackendRPC, c.SaleBackend)
	}
	if c.CatalogDebounceMs < 0 {
		return fmt.Errorf("CATALOG_DEBOUNCE_MS must be >= 0")
	}
	if c.RefreshMaxElapsedMs <= 0 {
		return fmt.Errorf("REFRESH_MAX_ELAPSED_MS must be > 0")
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}

func (c *Config) CatalogDebounce() time.Duration {
	return time.Duration(c.CatalogDebounceMs) * time.Millisecond
}

func (c *Config) RefreshMaxElapsed() time.Duration {
	return time.Duration(c.RefreshMaxElapsedMs) * time.Millisecond
}

func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
