package config

import (
	"strings"
	"time"
)

// CacheConfig drives the Redis response cache on the public space
// endpoints.  Search pages change whenever a listing does, so they expire
// sooner than single space pages.  Caching is off when Enabled is false or
// Redis is unreachable.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration // used by the middleware; see WithTTL
	SearchTTL    time.Duration
	DetailTTL    time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() CacheConfig {
	search := envDur("CACHE_SEARCH_TTL", 30*time.Second)
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          search,
		SearchTTL:    search,
		DetailTTL:    envDur("CACHE_DETAIL_TTL", 2*time.Minute),
		Prefix:       envStr("CACHE_PREFIX", "siaa:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// WithTTL returns a copy whose entries live for d.
func (c CacheConfig) WithTTL(d time.Duration) CacheConfig {
	c.TTL = d
	return c
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
