package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("origin", validateOrigin)
}

// validateOrigin accepts "*" or an absolute http(s) origin without a path.
func validateOrigin(fl validator.FieldLevel) bool {
	origin := fl.Field().String()
	if origin == "*" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && (u.Path == "" || u.Path == "/")
}

// validateCustom performs validation that spans several fields.
func validateCustom(cfg *Config) error {
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Limit <= 0 {
			return fmt.Errorf("ratelimit limit must be positive when rate limiting is enabled")
		}
		if cfg.RateLimit.Period <= 0 {
			return fmt.Errorf("ratelimit period must be positive when rate limiting is enabled")
		}
	}
	if cfg.Monitoring.Enabled && !strings.HasPrefix(cfg.Monitoring.Path, "/") {
		return fmt.Errorf("monitoring path must start with '/': %q", cfg.Monitoring.Path)
	}
	if cfg.Tracker.ListCacheTTL < 0 {
		return fmt.Errorf("tracker list_cache_ttl cannot be negative")
	}
	return nil
}
