package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)
	assert.Equal(t, 30*time.Second, cfg.Cache.ApprovedTTL())
	assert.Equal(t, "listing.moderated", cfg.Notification.NATSSubject)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("NOTIFY_QUEUE_SIZE", "8")
	t.Setenv("NOTIFY_CLAIM_SECONDS", "notanumber")
	t.Setenv("CACHE_APPROVED_TTL_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 8, cfg.Notification.QueueSize)
	assert.Equal(t, time.Minute, cfg.Notification.ClaimInterval())
	assert.Zero(t, cfg.Cache.ApprovedTTL())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	_, err := Load()
	assert.Error(t, err)
}
