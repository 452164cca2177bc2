package config

import (
	"os"
	"time"
)

// MediaCacheConfig defines settings for the cross-session media cache.
// When Enabled is false or no Redis client is configured, reconciliation
// falls back to storage lookups only.  TTL defines the lifetime of cached
// media rows; Prefix namespaces the keys per deployment.
type MediaCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadMediaCacheConfig reads environment variables to build a
// MediaCacheConfig.  Defaults are used when variables are not set.
func LoadMediaCacheConfig() MediaCacheConfig {
	return MediaCacheConfig{
		Enabled: getenv("MEDIA_CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("MEDIA_CACHE_TTL", "24h")),
		Prefix:  getenv("MEDIA_CACHE_PREFIX", "media"),
	}
}

// Helper functions reused across the config loaders.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
