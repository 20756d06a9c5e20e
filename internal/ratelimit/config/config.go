package config

import (
	"net/http"
	"time"

	"showroom/internal/ratelimit/models"
)

// Config holds rate limiting configuration.
type Config struct {
	// Per-IP limits by endpoint class.
	IPLimits map[models.EndpointClass]Limit

	// RejectStatus is the HTTP status written for rejected requests. The
	// storefront historically expected 200 with success:false; 429 is the default.
	RejectStatus int

	// MaxKeys bounds the in-memory window map; least recently used windows are evicted.
	MaxKeys int

	// CleanupInterval is how often idle windows are swept.
	CleanupInterval time.Duration
}

// Limit defines rate limit parameters for an endpoint class.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		IPLimits: map[models.EndpointClass]Limit{
			models.ClassListing: {RequestsPerWindow: 50, Window: time.Minute},
			models.ClassMail:    {RequestsPerWindow: 5, Window: 10 * time.Minute},
		},
		RejectStatus:    http.StatusTooManyRequests,
		MaxKeys:         10000,
		CleanupInterval: time.Minute,
	}
}

// GetIPLimit returns the IP rate limit for an endpoint class.
func (c *Config) GetIPLimit(class models.EndpointClass) (requestsPerWindow int, window time.Duration, ok bool) {
	limit, ok := c.IPLimits[class]
	if !ok || limit.RequestsPerWindow <= 0 || limit.Window <= 0 {
		return 0, 0, false
	}
	return limit.RequestsPerWindow, limit.Window, true
}

// LongestWindow is the largest configured window; a window idle for longer
// than this holds no live timestamps.
func (c *Config) LongestWindow() time.Duration {
	var longest time.Duration
	for _, l := range c.IPLimits {
		longest = max(longest, l.Window)
	}
	return longest
}
