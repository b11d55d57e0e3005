// Package config loads tool configuration from a TOML file.
//
// Configuration is optional: a missing file yields the defaults, and every
// value can still be overridden by command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rulesmith/rulesmith/pkg/nuget"
)

// Cache backend names accepted in the config file.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendNone  = "none"
)

// DefaultMetadataTTL is how long feed version lists stay cached.
const DefaultMetadataTTL = 24 * time.Hour

// Config holds the tool configuration.
type Config struct {
	// Source is the package feed URL.
	Source string `toml:"source"`

	// Cache configures the feed metadata cache.
	Cache CacheConfig `toml:"cache"`
}

// CacheConfig selects and configures the metadata cache backend.
type CacheConfig struct {
	Backend string      `toml:"backend"` // file, redis, or none
	TTL     duration    `toml:"ttl"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig holds redis backend settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// duration wraps time.Duration with TOML string parsing ("24h", "30m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source: nuget.DefaultSourceURL,
		Cache: CacheConfig{
			Backend: CacheBackendFile,
			TTL:     duration{DefaultMetadataTTL},
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
	}
}

// DefaultPath returns the standard config file location,
// ~/.config/rulesmith/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "rulesmith", "config.toml"), nil
}

// Load reads the config file at path, layered over the defaults. A missing
// file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, cfg)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}

	switch cfg.Cache.Backend {
	case CacheBackendFile, CacheBackendRedis, CacheBackendNone:
	default:
		return nil, fmt.Errorf("invalid cache backend %q (must be file, redis, or none)", cfg.Cache.Backend)
	}

	return cfg, nil
}

// MetadataTTL returns the configured cache TTL, falling back to the default
// when unset.
func (c *Config) MetadataTTL() time.Duration {
	if c.Cache.TTL.Duration <= 0 {
		return DefaultMetadataTTL
	}
	return c.Cache.TTL.Duration
}
