package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Storage.SnapshotBackend)
	assert.Equal(t, 25, cfg.Timer.FocusMinutes)
	assert.Equal(t, 5, cfg.Timer.BreakMinutes)
	assert.Equal(t, time.Second, cfg.Timer.TickInterval)
	assert.Equal(t, 2*time.Hour, cfg.Timer.StaleSessionAfter)
	assert.True(t, cfg.Timer.ClearStuckSessions)
	assert.True(t, cfg.Notifications.Sound)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clockko.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
timer:
  focus_minutes: 50
  timezone: UTC
storage:
  snapshot_backend: redis
  redis:
    key_prefix: "test:"
`), 0o600))

	t.Setenv("CLOCKKO_TIMER_BREAK_MINUTES", "10")
	t.Setenv("CLOCKKO_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Timer.FocusMinutes)
	assert.Equal(t, 10, cfg.Timer.BreakMinutes)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "redis", cfg.Storage.SnapshotBackend)
	assert.Equal(t, "test:", cfg.Storage.Redis.KeyPrefix)

	loc, err := cfg.Timer.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"CLOCKKO_SERVER_PORT":              "0",
		"CLOCKKO_TIMER_FOCUS_MINUTES":      "0",
		"CLOCKKO_STORAGE_SNAPSHOT_BACKEND": "etcd",
		"CLOCKKO_TIMER_TIMEZONE":           "Mars/Olympus_Mons",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
