package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "app", "DB_HOST": "localhost",
		"DB_PORT": "3306", "DB_NAME": "tables", "JWT_SECRET": "s", "ACCESS_TOKEN_TTL_MIN": "15",
		"REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "10",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.AMQPURL)
	assert.Equal(t, "logs/reservations.log", cfg.EventLogPath)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "")
	t.Setenv("BCRYPT_COST", "ten")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "DB_HOST")
	assert.ErrorContains(t, err, "BCRYPT_COST")
	assert.ErrorContains(t, err, "APP_TIMEZONE")
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TABLEBOOK_DOTENV_PROBE=yes\n"), 0o600))
	t.Setenv("TABLEBOOK_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("TABLEBOOK_DOTENV_PROBE"))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "yes", os.Getenv("TABLEBOOK_DOTENV_PROBE"))
}

func TestRateLimitConfigs(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	base := LoadRateLimitConfig()
	assert.Equal(t, 1, base.Capacity)
	assert.Equal(t, 10*time.Second, base.TTL)

	booking := LoadBookingRateLimitConfig(base)
	assert.Equal(t, "user", booking.KeyStrategy)
	assert.Equal(t, "rl:booking", booking.Prefix)
	assert.Equal(t, 10, booking.Capacity)
	assert.Equal(t, 6*time.Second, booking.RefillInterval)
	assert.Equal(t, 30*time.Second, booking.TTL)
}

func TestCacheAndRedisConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head,")
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, LoadCacheConfig().Methods)

	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)
}
