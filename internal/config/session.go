package config

import (
	"strings"
	"time"
)

// SessionConfig controls where viewer seat selections live.
//
// Store is "redis", "memory" or "auto"; auto uses Redis when a client could
// be created and falls back to process memory otherwise.
type SessionConfig struct {
	Store  string
	TTL    time.Duration
	Header string
}

// LoadSessionConfig reads SESSION_STORE, SESSION_TTL and SESSION_HEADER.
func LoadSessionConfig() SessionConfig {
	cfg := SessionConfig{
		Store:  strings.ToLower(envStr("SESSION_STORE", "auto")),
		TTL:    envDur("SESSION_TTL", 30*time.Minute),
		Header: envStr("SESSION_HEADER", "X-Viewer-Session"),
	}
	switch cfg.Store {
	case "redis", "memory", "auto":
	default:
		cfg.Store = "auto"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return cfg
}
