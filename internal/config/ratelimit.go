package config

import "time"

// RateLimitConfig drives the Redis token bucket.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the general limiter, applied to every route.
func LoadRateLimitConfig() RateLimitConfig {
	return loadRateLimit("RATE_LIMIT", RateLimitConfig{
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	})
}

// LoadBookingRateLimitConfig reads the stricter limiter placed on booking
// and cancellation writes, keyed by user.
func LoadBookingRateLimitConfig() RateLimitConfig {
	return loadRateLimit("BOOKING_RATE_LIMIT", RateLimitConfig{
		Capacity:       5,
		RefillTokens:   1,
		RefillInterval: 10 * time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "user_route",
		Prefix:         "rl:booking",
	})
}

func loadRateLimit(ns string, def RateLimitConfig) RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool(ns+"_ENABLED", true),
		Capacity:       envInt(ns+"_CAPACITY", def.Capacity),
		RefillTokens:   envInt(ns+"_REFILL_TOKENS", def.RefillTokens),
		RefillInterval: envDur(ns+"_REFILL_INTERVAL", def.RefillInterval),
		TTL:            envDur(ns+"_TTL", def.TTL),
		KeyStrategy:    envStr(ns+"_KEY_STRATEGY", def.KeyStrategy),
		Prefix:         envStr(ns+"_PREFIX", def.Prefix),
		Debug:          envBool(ns+"_DEBUG", false),
	}
	if b := envInt(ns+"_BURST", -1); b > 0 {
		c.Capacity = b
	}
	if every := envDur(ns+"_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens = 1
		c.RefillInterval = every
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
