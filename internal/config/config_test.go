package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8189), cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, DefaultLibraryDir, cfg.Library.Dir)
	assert.Equal(t, 5*time.Second, cfg.Remote.DialTimeout)
	assert.Equal(t, uint32(5), cfg.Remote.BreakerFailures)
	assert.Equal(t, 10, cfg.Library.MaxAuthFailures)
	assert.Equal(t, 5*time.Minute, cfg.Library.AuthLockout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Tasks.Workers)
	assert.False(t, cfg.ExportSchedule.Enabled)
	assert.Equal(t, "markdown", cfg.ExportSchedule.Format)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout())
	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LIBRARY_DIR", "/srv/stories")
	t.Setenv("LIBRARY_KEY", "k")
	t.Setenv("REMOTE_URL", "ws://example.org:9000/library")
	t.Setenv("REMOTE_DIAL_TIMEOUT", "250ms")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("EXPORT_SCHEDULE_ENABLED", "true")
	t.Setenv("LIBRARY_MAX_AUTH_FAILURES", "3")
	t.Setenv("LIBRARY_AUTH_LOCKOUT", "1h")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, "/srv/stories", cfg.Library.Dir)
	assert.Equal(t, "k", cfg.Library.Key)
	assert.Equal(t, "ws://example.org:9000/library", cfg.Remote.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Remote.DialTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.ExportSchedule.Enabled)
	assert.Equal(t, 3, cfg.Library.MaxAuthFailures)
	assert.Equal(t, time.Hour, cfg.Library.AuthLockout)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr())
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }},
		{"no library dir", func(c *Config) { c.Library.Dir = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad remote url", func(c *Config) { c.Remote.URL = "not a url" }},
		{"no workers", func(c *Config) { c.Tasks.Workers = 0 }},
		{"no auth failures allowed", func(c *Config) { c.Library.MaxAuthFailures = 0 }},
		{"schedule without dir", func(c *Config) {
			c.ExportSchedule.Enabled = true
			c.ExportSchedule.Dir = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
