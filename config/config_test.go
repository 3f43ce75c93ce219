package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRedisAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"handles plain host:port", "redis:6379", "redis:6379"},
		{"extracts host from redis URL", "redis://redis:6379", "redis:6379"},
		{"extracts host with auth", "redis://:password@redis:6379/0", "redis:6379"},
		{"handles empty string", "", ""},
		{"handles invalid URL gracefully", "not a url", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeRedisAddress(tt.input))
		})
	}
}

func TestResolveRedisPassword(t *testing.T) {
	tests := []struct {
		name     string
		redisURL string
		explicit string
		expected string
	}{
		{"prefers explicit password", "redis://:urlpass@redis:6379", "explicit", "explicit"},
		{"extracts from URL when no explicit", "redis://:urlpass@redis:6379", "", "urlpass"},
		{"returns empty when no password", "redis://redis:6379", "", ""},
		{"handles plain address", "redis:6379", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveRedisPassword(tt.redisURL, tt.explicit))
		})
	}
}

func TestBuildDatabaseURLFromEnv(t *testing.T) {
	for _, key := range []string{"PGHOST", "POSTGRES_HOST", "PGUSER", "POSTGRES_USER", "PGPASSWORD",
		"POSTGRES_PASSWORD", "PGDATABASE", "POSTGRES_DB", "PGPORT", "PGSSLMODE"} {
		t.Setenv(key, "")
	}

	t.Run("returns empty when required vars missing", func(t *testing.T) {
		assert.Empty(t, buildDatabaseURLFromEnv())
	})

	t.Run("builds URL with all vars set", func(t *testing.T) {
		t.Setenv("PGHOST", "db")
		t.Setenv("PGUSER", "listings")
		t.Setenv("PGPASSWORD", "s3cret pass")
		t.Setenv("PGDATABASE", "listings")

		result := buildDatabaseURLFromEnv()
		assert.True(t, strings.HasPrefix(result, "postgres://listings:"), result)
		assert.Contains(t, result, "@db:5432/listings")
		assert.Contains(t, result, "sslmode=disable")
	})

	t.Run("falls back to postgres image variables", func(t *testing.T) {
		t.Setenv("PGHOST", "")
		t.Setenv("POSTGRES_HOST", "pg")
		t.Setenv("POSTGRES_USER", "app")
		t.Setenv("POSTGRES_DB", "props")
		t.Setenv("PGPORT", "6543")

		result := buildDatabaseURLFromEnv()
		assert.Contains(t, result, "@pg:6543/props")
	})
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "REDIS_PASSWORD", "REDIS_DB", "DB_WAIT_ADDR",
		"REDIS_WAIT_ADDR", "WAIT_INTERVAL", "WAIT_TIMEOUT", "STARTUP_DELAY", "STATIC_DIRS", "STATIC_ROOT",
		"DEFAULT_ADMIN_USERNAME", "DEFAULT_ADMIN_EMAIL", "DEFAULT_ADMIN_PASSWORD", "BIND_ADDRESS",
		"PORT", "WORKERS", "SERVER_BINARY", "JWT_SECRET", "TOKEN_TTL", "CACHE_TTL", "DETAIL_CACHE_TTL",
		"APP_ENV", "DEBUG", "ENABLE_METRICS", "TRUST_PROXY_HEADERS", "LOG_FORMAT", "CORS_ORIGINS",
		"PGHOST", "POSTGRES_HOST", "PGUSER", "POSTGRES_USER", "PGDATABASE", "POSTGRES_DB"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres://postgres:postgres@db:5432/listings?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisURL)
	assert.Equal(t, "db:5432", cfg.DBWaitAddr)
	assert.Equal(t, "redis:6379", cfg.RedisWaitAddr)
	assert.Equal(t, time.Second, cfg.WaitInterval)
	assert.Equal(t, time.Duration(0), cfg.WaitTimeout)
	assert.Equal(t, []string{"static"}, cfg.StaticDirs)
	assert.Equal(t, "staticfiles", cfg.StaticRoot)
	assert.Equal(t, "admin", cfg.DefaultAdminUsername)
	assert.True(t, cfg.UsesDefaultAdminPassword())
	assert.Equal(t, "0.0.0.0", cfg.BindAddress)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.True(t, cfg.EnableMetrics)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Len(t, cfg.JWTSecret, 64, "a random secret is generated outside production")
	assert.Equal(t, cfg.JWTSecret, os.Getenv("JWT_SECRET"))
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("REDIS_URL", "redis://:hunter22@cache:6380/0")
	t.Setenv("WAIT_INTERVAL", "250ms")
	t.Setenv("WAIT_TIMEOUT", "30s")
	t.Setenv("STATIC_DIRS", "static, assets/vendor ,")
	t.Setenv("PORT", "9000")
	t.Setenv("WORKERS", "1")
	t.Setenv("DEFAULT_ADMIN_PASSWORD", "a-much-better-password")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("CORS_ORIGINS", "https://listings.example.com,http://localhost:3000")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", cfg.RedisURL)
	assert.Equal(t, "hunter22", cfg.RedisPassword)
	assert.Equal(t, 250*time.Millisecond, cfg.WaitInterval)
	assert.Equal(t, 30*time.Second, cfg.WaitTimeout)
	assert.Equal(t, []string{"static", "assets/vendor"}, cfg.StaticDirs)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.UsesDefaultAdminPassword())
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, []string{"https://listings.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "PORT", "70000"},
		{"zero workers", "WORKERS", "0"},
		{"zero wait interval", "WAIT_INTERVAL", "0s"},
		{"wait address without port", "DB_WAIT_ADDR", "db"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"bind address not an IP", "BIND_ADDRESS", "everywhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestLoadConfigRequiresJWTSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
