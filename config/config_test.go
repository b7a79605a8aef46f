package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.AppPort != "5000" || cfg.StoreDriver != DriverMongo || cfg.BcryptCost != 12 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TokenTTL() != time.Hour || cfg.ExternalTokenMinLength != 500 {
		t.Fatalf("unexpected auth defaults: ttl=%v min=%d", cfg.TokenTTL(), cfg.ExternalTokenMinLength)
	}
}

func TestLoadFromFileSectionsAndEnv(t *testing.T) {
	path := writeConfig(t, `{
		"AppPort": "8080",
		"auth": {"JWTSecret": "from-file", "BcryptCost": 10},
		"store": {"StoreDriver": "memory"},
		"http": {"AllowedOrigins": ["https://a.example"]}
	}`)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PORT", "")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://b.example, https://c.example")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.JWTSecret != "from-file" || cfg.BcryptCost != 10 || cfg.StoreDriver != DriverMemory {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.AppPort != "9090" {
		t.Fatalf("env should override file, AppPort=%q", cfg.AppPort)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://c.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadFromValidation(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")

	t.Run("secret required", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		if _, err := LoadFrom(missing); err == nil {
			t.Fatal("expected error without JWT_SECRET")
		}
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("STORE_DRIVER", "postgres")
		if _, err := LoadFrom(missing); err == nil {
			t.Fatal("expected error for unknown driver")
		}
	})
	t.Run("bad integer", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("BCRYPT_COST", "twelve")
		if _, err := LoadFrom(missing); err == nil {
			t.Fatal("expected error for non-numeric BCRYPT_COST")
		}
	})
	t.Run("invalid json", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		if _, err := LoadFrom(writeConfig(t, "{")); err == nil {
			t.Fatal("expected error for invalid JSON")
		}
	})
}
