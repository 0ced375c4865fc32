package config

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "Yes")
	t.Setenv("X_BAD_BOOL", "maybe")
	t.Setenv("X_INT", "42")
	t.Setenv("X_BAD_INT", "4x")
	t.Setenv("X_DUR", "90s")

	if !envBool("X_BOOL", false) || !envBool("X_BAD_BOOL", true) || envBool("X_UNSET", false) {
		t.Fatal("envBool")
	}
	if envInt("X_INT", 0) != 42 || envInt("X_BAD_INT", 7) != 7 {
		t.Fatal("envInt")
	}
	if envDur("X_DUR", 0) != 90*time.Second || envDur("X_UNSET", time.Second) != time.Second {
		t.Fatal("envDur")
	}
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Fatalf("Capacity = %d, want 1", cfg.Capacity)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("TTL = %v, want 5 refill intervals", cfg.TTL)
	}
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	cfg := LoadCacheConfig()
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] || len(cfg.Methods) != 2 {
		t.Fatalf("Methods = %v", cfg.Methods)
	}
}

func TestLoadMemoryModeSkipsDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_GATEWAY", "memory")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "30")

	cfg := Load()
	if cfg.Gateway != GatewayMemory || cfg.DBHost != "" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("BcryptCost = %d, want default 10", cfg.BcryptCost)
	}
}
