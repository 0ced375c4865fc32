package config

import "time"

// CacheConfig controls the Redis response cache on public location
// lookups.  Caching is off when Enabled is false or Redis is unavailable.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // "route_query" or "path"
	Prefix       string
	MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      envMethods("CACHE_METHODS", "GET"),
		TTL:          envDur("CACHE_TTL", 5*time.Minute),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "meit:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 64<<10),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Second
	}
	return cfg
}
