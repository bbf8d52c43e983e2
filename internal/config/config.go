// Package config defines all configuration for the position engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via PE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Tick       TickConfig       `mapstructure:"tick"`
	Events     EventsConfig     `mapstructure:"events"`
	Persist    PersistConfig    `mapstructure:"persistence"`
	Health     HealthConfig     `mapstructure:"health"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

// TickConfig controls the inbound quote feed.
type TickConfig struct {
	NATSUrl        string        `mapstructure:"nats_url"`
	Subject        string        `mapstructure:"subject"`
	StaleQuoteAfter time.Duration `mapstructure:"stale_quote_after"`
}

// EventsConfig controls outbound persistence/notification publishing.
type EventsConfig struct {
	NATSUrl      string `mapstructure:"nats_url"`
	// Retries is loaded but not passed to the publisher;
	// NewNATSPublisher always retries 3 times.
	Retries      int    `mapstructure:"retries"`
}

// PersistConfig selects and configures startup-hydration storage.
//
//   - Mode "remote": fetch the snapshot from a durable persistence service over HTTP.
//   - Mode "local":  load/save the snapshot from local JSON files (dev/test default).
type PersistConfig struct {
	Mode        string `mapstructure:"mode"`
	RemoteURL   string `mapstructure:"remote_url"`
	LocalDir    string `mapstructure:"local_dir"`
}

// HealthConfig tunes the margin-call/exposure telemetry aggregator.
type HealthConfig struct {
	MarginCallPercent float64 `mapstructure:"margin_call_percent"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the HTTP+WS server that serves the command
// RPC endpoints and the read-only dashboard event feed.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("PE_EVENTS_NATS_URL"); url != "" {
		cfg.Events.NATSUrl = url
	}
	if url := os.Getenv("PE_TICK_NATS_URL"); url != "" {
		cfg.Tick.NATSUrl = url
	}
	if url := os.Getenv("PE_PERSIST_REMOTE_URL"); url != "" {
		cfg.Persist.RemoteURL = url
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Tick.Subject == "" {
		return fmt.Errorf("tick.subject is required")
	}
	if c.Tick.StaleQuoteAfter <= 0 {
		return fmt.Errorf("tick.stale_quote_after must be > 0")
	}
	switch c.Persist.Mode {
	case "remote":
		if c.Persist.RemoteURL == "" {
			return fmt.Errorf("persistence.remote_url is required when persistence.mode is remote")
		}
	case "local":
		if c.Persist.LocalDir == "" {
			return fmt.Errorf("persistence.local_dir is required when persistence.mode is local")
		}
	default:
		return fmt.Errorf("persistence.mode must be one of: remote, local")
	}
	if c.Health.MarginCallPercent <= 0 {
		return fmt.Errorf("health.margin_call_percent must be > 0")
	}
	return nil
}
