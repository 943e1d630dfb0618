// Package config loads the single configuration value that is built once at
// process start and handed to each component's constructor.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MEDIAVEC_STORE_DSN.
const EnvPrefix = "MEDIAVEC"

// Config holds all configuration for the application.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Search  SearchConfig  `mapstructure:"search"`
	Indexer IndexerConfig `mapstructure:"indexer"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	DSN         string        `mapstructure:"dsn"`
	Table       string        `mapstructure:"table"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	WAL         bool          `mapstructure:"wal"`
	ChangeLog   bool          `mapstructure:"change_log"`
}

// SearchConfig holds similarity query settings.
type SearchConfig struct {
	MaxN     int `mapstructure:"max_n"`
	DefaultN int `mapstructure:"default_n"`
}

// IndexerConfig holds indexing run settings.
type IndexerConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// SessionConfig holds session manager settings.
type SessionConfig struct {
	Driver        string        `mapstructure:"driver"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig toggles metrics collection.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads defaults, then the optional YAML file at path, then
// MEDIAVEC_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.dsn", "mediavec.sqlite")
	v.SetDefault("store.table", "documents")
	v.SetDefault("store.busy_timeout", "5s")
	v.SetDefault("store.wal", true)
	v.SetDefault("store.change_log", false)

	v.SetDefault("search.max_n", 100)
	v.SetDefault("search.default_n", 10)

	v.SetDefault("indexer.batch_size", 200)

	v.SetDefault("session.driver", "sqlite")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.sweep_interval", "5m")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_prefix", "mediavec:session:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.enabled", false)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.DSN == "" {
		return fmt.Errorf("store dsn is required")
	}
	if c.Search.MaxN < 1 {
		return fmt.Errorf("search max_n must be positive: %d", c.Search.MaxN)
	}
	if c.Search.DefaultN < 1 || c.Search.DefaultN > c.Search.MaxN {
		return fmt.Errorf("search default_n must be in [1, %d]: %d", c.Search.MaxN, c.Search.DefaultN)
	}
	if c.Indexer.BatchSize < 1 {
		return fmt.Errorf("indexer batch_size must be positive: %d", c.Indexer.BatchSize)
	}
	switch c.Session.Driver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown session driver: %q", c.Session.Driver)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive: %s", c.Session.TTL)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep_interval must be positive: %s", c.Session.SweepInterval)
	}
	return nil
}
