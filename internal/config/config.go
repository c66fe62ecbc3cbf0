package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Sampler configuration
	Sampler SamplerConfig

	// Journal (sqlite) configuration
	Journal JournalConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Web server configuration
	Web WebConfig

	// Logging configuration
	Logging LoggingConfig

	// Embed event configuration
	Embed EmbedConfig
}

// SamplerConfig holds session sampling configuration
type SamplerConfig struct {
	PollInterval    time.Duration `split_words:"true"` // Worker sleep between ticks
	MinPollInterval time.Duration `ignored:"true"`     // Minimum allowed poll interval
	MaxBuffered     int           `split_words:"true"` // 0 = unbounded
	Clipboard       bool          // Attach clipboard text to samples
}

// JournalConfig holds journal database configuration
type JournalConfig struct {
	Path string // Path to SQLite database file
}

// DaemonConfig holds foreground session process configuration
type DaemonConfig struct {
	ActiveFile string `split_words:"true"` // Path to active session file
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string // Host to bind web server to
	Port int    // Port for web server
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level       string
	Development bool
}

// EmbedConfig holds embed event configuration
type EmbedConfig struct {
	Enabled     bool
	MinInterval time.Duration `split_words:"true"` // Minimum time between embed events
	MinChars    int           `split_words:"true"` // Minimum text length to embed
	Dimension   int           // Pseudo-embedding dimension (1-64)
}

// DataDir returns ~/.local/share/mitschreiber
func DataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "mitschreiber"), nil
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Sampler: SamplerConfig{
			PollInterval:    500 * time.Millisecond,
			MinPollInterval: time.Millisecond,
			MaxBuffered:     0,
			Clipboard:       false,
		},
		Journal: JournalConfig{
			Path: "", // Empty means use default <data dir>/journal.db
		},
		Daemon: DaemonConfig{
			ActiveFile: "", // Empty means use default <data dir>/sessions/active.json
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid()%50000, // Per-user default port
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
		Embed: EmbedConfig{
			Enabled:     false,
			MinInterval: 10 * time.Second,
			MinChars:    12,
			Dimension:   32,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Sampler.PollInterval < c.Sampler.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Sampler.PollInterval, c.Sampler.MinPollInterval)
	}

	if c.Sampler.MaxBuffered < 0 {
		return fmt.Errorf("max buffered cannot be negative, got %d", c.Sampler.MaxBuffered)
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	if c.Embed.Dimension < 1 || c.Embed.Dimension > 64 {
		return fmt.Errorf("embed dimension must be between 1 and 64, got %d", c.Embed.Dimension)
	}

	if c.Embed.MinChars < 0 {
		return fmt.Errorf("embed min chars cannot be negative")
	}

	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Sampler.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Sampler.MinPollInterval)
	}
	c.Sampler.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// GetPollIntervalMillis returns the poll interval in milliseconds
func (c *Config) GetPollIntervalMillis() int64 {
	return c.Sampler.PollInterval.Milliseconds()
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Sampler:
    Poll Interval: %v
    Max Buffered: %d
    Clipboard: %v
  Journal:
    Path: %s
  Daemon:
    Active File: %s
  Web:
    Host: %s
    Port: %d
  Logging:
    Level: %s
    Development: %v
  Embed:
    Enabled: %v
    Min Interval: %v
    Min Chars: %d
    Dimension: %d`,
		c.Sampler.PollInterval,
		c.Sampler.MaxBuffered,
		c.Sampler.Clipboard,
		c.Journal.Path,
		c.Daemon.ActiveFile,
		c.Web.Host,
		c.Web.Port,
		c.Logging.Level,
		c.Logging.Development,
		c.Embed.Enabled,
		c.Embed.MinInterval,
		c.Embed.MinChars,
		c.Embed.Dimension,
	)
}
