package config

import (
	"testing"
	"time"
)

func TestLoadRateLimitConfigShorthands(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 5 || cfg.RefillTokens != 1 || cfg.RefillInterval != 2*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("TTL = %s, want it raised to 10s", cfg.TTL)
	}
}

func TestLoadSessionConfig(t *testing.T) {
	t.Setenv("SESSION_STORE", "bogus")
	t.Setenv("SESSION_TTL", "-1m")
	cfg := LoadSessionConfig()
	if cfg.Store != "auto" || cfg.TTL != 30*time.Minute || cfg.Header != "X-Viewer-Session" {
		t.Fatalf("cfg = %+v", cfg)
	}
	t.Setenv("SESSION_STORE", "MEMORY")
	if got := LoadSessionConfig().Store; got != "memory" {
		t.Fatalf("Store = %q", got)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "off")
	cfg := LoadCacheConfig()
	if cfg.Enabled || !cfg.Methods["GET"] || !cfg.Methods["HEAD"] || cfg.TTL != 30*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.PurgeOnWrite || cfg.Prefix != "seatmap:cache" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestAMQPURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	if got := AMQPURL(); got != "amqp://u:p@mq:5672/" {
		t.Fatalf("AMQPURL = %q", got)
	}
}
