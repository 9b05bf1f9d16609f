package ratelimit

import (
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
)

// Config represents rate limiting configuration
type Config struct {
	// Per-client rate limit
	Rate RateConfig `yaml:"rate"`

	// Key prefix inside the store
	Prefix string `yaml:"prefix"`

	// Exclude patterns
	ExcludedPaths []string `yaml:"excluded_paths"`

	// Shared Redis store; empty keeps counters in memory
	RedisURL string `yaml:"redis_url"`
}

// RateConfig represents a single rate limit configuration
type RateConfig struct {
	Period time.Duration `yaml:"period"`
	Limit  int64         `yaml:"limit"`
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		Rate: RateConfig{
			Limit:  60,
			Period: 1 * time.Minute,
		},
		Prefix: "k2brd:ratelimit:",
		ExcludedPaths: []string{
			"/health",
			"/metrics",
			"/api/v1/health",
		},
	}
}

// ToLimiterRate converts RateConfig to limiter.Rate
func (rc RateConfig) ToLimiterRate() limiter.Rate {
	return limiter.Rate{
		Period: rc.Period,
		Limit:  rc.Limit,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Rate.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.Rate.Period <= 0 {
		return fmt.Errorf("rate limit period must be positive")
	}
	return nil
}
