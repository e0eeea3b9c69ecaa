package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, int64(50*1024*1024), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, "Test Student", cfg.Portal.SentinelName)
	assert.Equal(t, 10, cfg.Portal.MaxFiles)
	assert.Equal(t, RealtimeDriverMemory, cfg.Realtime.Driver)
	assert.Equal(t, ArchiveDriverLocal, cfg.Archive.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Downloads.SignedURLTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Purge.Retention)
	assert.Equal(t, "portfolio_changes", cfg.Database.NotifyChannel)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORTAL_MAX_FILES", "4")
	t.Setenv("PORTAL_PUBLIC_BASE_URL", "https://portfolio.example.com/")
	t.Setenv("REALTIME_DRIVER", "Redis")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("WORKS_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Portal.MaxFiles)
	assert.Equal(t, "https://portfolio.example.com", cfg.Portal.PublicBaseURL)
	assert.Equal(t, RealtimeDriverRedis, cfg.Realtime.Driver)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoadRealtimeChannel(t *testing.T) {
	chdirTemp(t)
	t.Setenv("REALTIME_CHANNEL", "gallery_events")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gallery_events", cfg.Realtime.Channel)
	assert.Equal(t, "gallery_events", cfg.Database.NotifyChannel)

	t.Setenv("REALTIME_CHANNEL", "bad channel';")
	_, err = Load()
	require.Error(t, err)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
