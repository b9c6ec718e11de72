package config

import "time"

// Cache key strategies.
const (
	CacheKeyRoute      = "route"
	CacheKeyRouteQuery = "route_query"
	CacheKeyFull       = "full"
)

// CacheConfig configures the Redis response cache on the restaurant
// reads.  It has no effect without a Redis client.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // upper-case HTTP methods that are cached
	TTL          time.Duration
	KeyStrategy  string // one of the CacheKey* constants
	Prefix       string
	MaxBodyBytes int // larger responses are passed through uncached
}

// LoadCacheConfig reads CACHE_* variables.  A non-positive TTL or body
// limit and an unknown key strategy fall back to the defaults.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      envSet("CACHE_METHODS", "GET"),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  getenv("CACHE_KEY_STRATEGY", CacheKeyRouteQuery),
		Prefix:       getenv("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	switch cfg.KeyStrategy {
	case CacheKeyRoute, CacheKeyRouteQuery, CacheKeyFull:
	default:
		cfg.KeyStrategy = CacheKeyRouteQuery
	}
	return cfg
}
