package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store and lock backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Storage
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5435"`
	PGUser      string `env:"PGUSER" envDefault:"lottery"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"lottery"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"lottery"`
	PGMaxConns  int32  `env:"PG_MAX_CONNS" envDefault:"20"`

	// Redis
	RedisURL     string        `env:"REDIS_URL"`
	LockBackend  string        `env:"LOCK_BACKEND" envDefault:"memory"`
	LockTTL      time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	BalanceCache bool          `env:"BALANCE_CACHE" envDefault:"false"`

	// JWT
	JWTSecret       string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTPlayerExpiry string `env:"JWT_PLAYER_EXPIRY" envDefault:"24h"`
	JWTAdminExpiry  string `env:"JWT_ADMIN_EXPIRY" envDefault:"8h"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Cancellation
	CancelTimeout     time.Duration `env:"CANCEL_TIMEOUT" envDefault:"30s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`

	// Users
	InitialGrant      int64 `env:"INITIAL_GRANT" envDefault:"0"`
	PurchaseRateLimit int   `env:"PURCHASE_RATE_LIMIT" envDefault:"0"` // per user per minute; 0 disables

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for unusable or insecure configuration.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.StoreBackend)
	}
	switch c.LockBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("LOCK_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("LOCK_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.LockBackend)
	}
	if c.BalanceCache && c.RedisURL == "" {
		return fmt.Errorf("BALANCE_CACHE requires REDIS_URL")
	}
	if c.InitialGrant < 0 {
		return fmt.Errorf("INITIAL_GRANT must not be negative")
	}
	if c.PurchaseRateLimit < 0 {
		return fmt.Errorf("PURCHASE_RATE_LIMIT must not be negative")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
