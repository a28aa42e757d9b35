package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, EnvDev, cfg.AppEnv)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 5, cfg.RateLimitMaxAttempts)
	assert.Equal(t, "INFO", cfg.LogLevel)
	require.NoError(t, Validate(cfg))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("RATE_LIMIT_WINDOW", "2s")
	t.Setenv("RATE_LIMIT_MAX_ATTEMPTS", "3")
	t.Setenv("ALLOWED_DOMAINS", "Example.com, cdn.example.org")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")

	cfg := Load()

	assert.Equal(t, EnvTest, cfg.AppEnv)
	assert.Equal(t, StorageFile, cfg.StorageDriver)
	assert.Equal(t, 2*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 3, cfg.RateLimitMaxAttempts)
	assert.Equal(t, []string{"example.com", "cdn.example.org"}, cfg.AllowedDomains)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
}

func TestValidate(t *testing.T) {
	t.Run("sql driver requires a database url", func(t *testing.T) {
		cfg := Load()
		cfg.StorageDriver = StorageSQL
		cfg.DatabaseURL = ""
		assert.Error(t, Validate(cfg))

		cfg.DatabaseURL = ":memory:"
		assert.NoError(t, Validate(cfg))
	})

	t.Run("unknown storage driver is rejected", func(t *testing.T) {
		cfg := Load()
		cfg.StorageDriver = "indexeddb"
		assert.Error(t, Validate(cfg))
	})

	t.Run("trusted proxies must be addresses or ranges", func(t *testing.T) {
		cfg := Load()
		cfg.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.1"}
		assert.NoError(t, Validate(cfg))

		cfg.TrustedProxies = []string{"proxy.internal"}
		assert.Error(t, Validate(cfg))
	})

	t.Run("max attempts must be positive", func(t *testing.T) {
		cfg := Load()
		cfg.RateLimitMaxAttempts = 0
		assert.Error(t, Validate(cfg))
	})
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://user:hunter2@db/app", RedisURL: ""}
	out := cfg.String()

	assert.NotContains(t, out, "hunter2")
	assert.True(t, strings.Contains(out, "DatabaseURL: ***REDACTED***"))
	assert.Contains(t, out, "RedisURL: ,")
}
