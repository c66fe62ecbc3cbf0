package config

import (
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment variable, e.g.
// MITSCHREIBER_SAMPLER_POLL_INTERVAL=250ms
const EnvPrefix = "MITSCHREIBER"

// LoadFromEnv overrides cfg from MITSCHREIBER_* environment variables.
// Variables that are not set leave the current value in place.
func LoadFromEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return errors.Wrap(err, "failed to load config from environment")
	}

	// MITSCHREIBER_EMBED=1 is accepted as shorthand for EMBED_ENABLED
	switch strings.ToLower(os.Getenv(EnvPrefix + "_EMBED")) {
	case "1", "true", "yes":
		cfg.Embed.Enabled = true
	}

	return nil
}

// New creates a new Config with default values and loads from environment
func New() (*Config, error) {
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
