package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  read_timeout: 10s
database:
  dsn: ":memory:"
cache:
  backend: redis
  ttl: 1h
  redis:
    addr: "redis:6379"
spoonacular:
  base_url: https://api.spoonacular.com
  api_key: sk-test
  timeout: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, ":9090")
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("dsn = %q, want %q", cfg.Database.DSN, ":memory:")
	}
	if cfg.Cache.Backend != "redis" {
		t.Errorf("cache backend = %q, want %q", cfg.Cache.Backend, "redis")
	}
	if cfg.Cache.Redis.Addr != "redis:6379" {
		t.Errorf("redis addr = %q, want %q", cfg.Cache.Redis.Addr, "redis:6379")
	}
	if cfg.Spoonacular.APIKey != "sk-test" {
		t.Errorf("api key = %q, want %q", cfg.Spoonacular.APIKey, "sk-test")
	}
	if cfg.Spoonacular.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.Spoonacular.Timeout)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
spoonacular:
  api_key: sk-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("default cache backend = %q, want %q", cfg.Cache.Backend, "memory")
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("default ttl = %s, want 1h", cfg.Cache.TTL)
	}
	if !cfg.Breaker.IsEnabled() {
		t.Error("breaker should default to enabled")
	}
	if cfg.Spoonacular.BaseURL != "https://api.spoonacular.com" {
		t.Errorf("default base url = %q", cfg.Spoonacular.BaseURL)
	}
}

func TestLoad_ExpandEnv(t *testing.T) {
	t.Setenv("PANTRY_TEST_KEY", "from-env")
	path := writeConfig(t, `
spoonacular:
  api_key: ${PANTRY_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Spoonacular.APIKey != "from-env" {
		t.Errorf("api key = %q, want %q", cfg.Spoonacular.APIKey, "from-env")
	}
}

func TestLoad_UnsetEnvLeftVerbatim(t *testing.T) {
	path := writeConfig(t, `
spoonacular:
  api_key: ${PANTRY_DOES_NOT_EXIST}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Spoonacular.APIKey != "${PANTRY_DOES_NOT_EXIST}" {
		t.Errorf("api key = %q, want placeholder preserved", cfg.Spoonacular.APIKey)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := writeConfig(t, `
cache:
  backend: memcached
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown cache backend")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
