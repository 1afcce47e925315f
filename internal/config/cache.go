package config

import (
	"strings"
	"time"
)

// CacheConfig controls the Redis response cache in front of the public
// catalogue (topologies, routes, buses and per-date seat counts). Caching
// is off when Enabled is false or no Redis client could be created.
//
// PurgeOnWrite drops every cached entry after a booking or cancellation so
// availability counts never lag a write by a full TTL.
type CacheConfig struct {
	Enabled      bool
	PurgeOnWrite bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // "route_query" or "route"
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		PurgeOnWrite: envBool("CACHE_PURGE_ON_WRITE", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "seatmap:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			m[p] = true
		}
	}
	return m
}
