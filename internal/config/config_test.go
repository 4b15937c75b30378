package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears a variable for the test while restoring it afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "REDIS_ADDR", "DATABASE_URL", "ADMIN_TOKEN",
		"REFRESH_INTERVAL", "WARM_ALL_CRON", "WARM_ON_START")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "0 * * * *", cfg.WarmAllCron)
	assert.True(t, cfg.WarmOnStart)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DATABASE_URL", "postgres://localhost/quoteflow")
	t.Setenv("ADMIN_TOKEN", "secret")
	t.Setenv("REFRESH_INTERVAL", "90s")
	t.Setenv("WARM_ON_START", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 90*time.Second, cfg.RefreshInterval)
	assert.False(t, cfg.WarmOnStart)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Config{
		DatabaseURL:     "postgres://localhost/quoteflow",
		AdminToken:      "secret",
		RefreshInterval: time.Minute,
	}
	assert.NoError(t, cfg.Validate())

	missing := cfg
	missing.DatabaseURL = ""
	assert.ErrorContains(t, missing.Validate(), "DATABASE_URL")

	missing = cfg
	missing.AdminToken = ""
	assert.ErrorContains(t, missing.Validate(), "ADMIN_TOKEN")

	missing = cfg
	missing.RefreshInterval = 0
	assert.ErrorContains(t, missing.Validate(), "REFRESH_INTERVAL")
}
