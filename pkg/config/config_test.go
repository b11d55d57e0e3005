package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rulesmith/rulesmith/pkg/nuget"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Source != nuget.DefaultSourceURL {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.Cache.Backend != CacheBackendFile {
		t.Errorf("Backend = %q", cfg.Cache.Backend)
	}
	if cfg.MetadataTTL() != DefaultMetadataTTL {
		t.Errorf("MetadataTTL() = %s", cfg.MetadataTTL())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
source = "https://feed.internal/v3-flatcontainer"

[cache]
backend = "redis"
ttl = "1h"

[cache.redis]
addr = "redis.internal:6379"
db = 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Source != "https://feed.internal/v3-flatcontainer" {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.Cache.Backend != CacheBackendRedis {
		t.Errorf("Backend = %q", cfg.Cache.Backend)
	}
	if cfg.MetadataTTL() != time.Hour {
		t.Errorf("MetadataTTL() = %s", cfg.MetadataTTL())
	}
	if cfg.Cache.Redis.Addr != "redis.internal:6379" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Cache.Redis)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `sauce = "typo"`)
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject unknown keys")
	}
}

func TestLoadRejectsInvalidBackend(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "memcached"
`)
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject unknown cache backends")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, `source = `)
	if _, err := Load(path); err == nil {
		t.Error("Load() should reject malformed TOML")
	}
}
