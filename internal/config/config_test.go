package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	envVars := map[string]string{
		"MITSCHREIBER_SAMPLER_POLL_INTERVAL": "250ms",
		"MITSCHREIBER_SAMPLER_MAX_BUFFERED":  "100",
		"MITSCHREIBER_SAMPLER_CLIPBOARD":     "true",
		"MITSCHREIBER_JOURNAL_PATH":          "/tmp/journal.db",
		"MITSCHREIBER_DAEMON_ACTIVE_FILE":    "/tmp/active.json",
		"MITSCHREIBER_WEB_PORT":              "9100",
		"MITSCHREIBER_LOGGING_LEVEL":         "debug",
		"MITSCHREIBER_EMBED_MIN_CHARS":       "20",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Sampler.PollInterval)
	assert.Equal(t, 100, cfg.Sampler.MaxBuffered)
	assert.True(t, cfg.Sampler.Clipboard)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
	assert.Equal(t, "/tmp/active.json", cfg.Daemon.ActiveFile)
	assert.Equal(t, 9100, cfg.Web.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 20, cfg.Embed.MinChars)

	// Unset values keep their defaults
	assert.Equal(t, "localhost", cfg.Web.Host)
	assert.Equal(t, time.Millisecond, cfg.Sampler.MinPollInterval)
	assert.Equal(t, 32, cfg.Embed.Dimension)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvInvalidValue(t *testing.T) {
	t.Setenv("MITSCHREIBER_SAMPLER_POLL_INTERVAL", "soon")

	_, err := New()
	assert.Error(t, err)
}

func TestEmbedShorthand(t *testing.T) {
	t.Setenv("MITSCHREIBER_EMBED", "yes")

	cfg, err := New()
	require.NoError(t, err)
	assert.True(t, cfg.Embed.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Default", func(*Config) {}, false},
		{"Poll interval too small", func(c *Config) { c.Sampler.PollInterval = 0 }, true},
		{"Negative max buffered", func(c *Config) { c.Sampler.MaxBuffered = -1 }, true},
		{"Bad port", func(c *Config) { c.Web.Port = 0 }, true},
		{"Empty host", func(c *Config) { c.Web.Host = "" }, true},
		{"Bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"Embed dimension too large", func(c *Config) { c.Embed.Dimension = 65 }, true},
		{"Negative min chars", func(c *Config) { c.Embed.MinChars = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetWebPort(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.SetWebPort(8080))
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Error(t, cfg.SetWebPort(70000))
}

func TestStringAndMillis(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(500), cfg.GetPollIntervalMillis())
	assert.Contains(t, cfg.String(), "Poll Interval: 500ms")
}

func TestDataDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	dir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.local/share/mitschreiber", dir)
}
