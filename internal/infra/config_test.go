package infra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, BackendMemory, cfg.LockBackend)
	assert.Equal(t, 3100, cfg.APIPort)
	assert.Positive(t, cfg.ReconcileInterval)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("RECONCILE_INTERVAL", "15s")
	t.Setenv("INITIAL_GRANT", "250")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "15s", cfg.ReconcileInterval.String())
	assert.Equal(t, int64(250), cfg.InitialGrant)
}

func validConfig() *Config {
	return &Config{
		StoreBackend: BackendMemory,
		LockBackend:  BackendMemory,
		JWTSecret:    strings.Repeat("s", 32),
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown store", func(c *Config) { c.StoreBackend = "mysql" }, "STORE_BACKEND"},
		{"unknown lock", func(c *Config) { c.LockBackend = "etcd" }, "LOCK_BACKEND"},
		{"redis lock without url", func(c *Config) { c.LockBackend = BackendRedis }, "REDIS_URL"},
		{"redis lock with url", func(c *Config) { c.LockBackend = BackendRedis; c.RedisURL = "redis://localhost:6379" }, ""},
		{"cache without url", func(c *Config) { c.BalanceCache = true }, "REDIS_URL"},
		{"negative grant", func(c *Config) { c.InitialGrant = -1 }, "INITIAL_GRANT"},
		{"negative rate limit", func(c *Config) { c.PurchaseRateLimit = -1 }, "PURCHASE_RATE_LIMIT"},
		{"default secret", func(c *Config) { c.JWTSecret = "change-me-in-production" }, "insecure default"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "too short"},
		{"insecure allowed", func(c *Config) { c.JWTSecret = "short"; c.AllowInsecureDefaults = true }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{PGUser: "u", PGPassword: "p", PGHost: "h", PGPort: 5432, PGDatabase: "d"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.DSN())

	cfg.DatabaseURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())
}
