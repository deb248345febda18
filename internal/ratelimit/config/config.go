package config

import (
	"time"

	"tillgate/internal/ratelimit/models"
	"tillgate/pkg/validation"
)

// Config holds rate limiting and request guard configuration.
type Config struct {
	// Per-class admission limits
	Limits map[models.EndpointClass]Limit

	// Per-class request body ceilings in bytes
	BodyCeilings map[models.EndpointClass]int64

	// Sweep controls eviction of idle client window state.
	Sweep SweepConfig
}

// Limit defines admission parameters for an endpoint class. BlockDuration is
// the punitive cooldown imposed when the window fills; it is strictly longer
// than the window itself.
type Limit struct {
	Window        time.Duration
	MaxRequests   int
	BlockDuration time.Duration
}

// SweepConfig controls the background eviction of stale client entries.
type SweepConfig struct {
	Interval  time.Duration
	Retention time.Duration // idle time after which an entry is evicted
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Limits: map[models.EndpointClass]Limit{
			models.ClassAuth:    {Window: 15 * time.Minute, MaxRequests: 5, BlockDuration: 30 * time.Minute},
			models.ClassUpload:  {Window: time.Hour, MaxRequests: 10, BlockDuration: 2 * time.Hour},
			models.ClassAPI:     {Window: 15 * time.Minute, MaxRequests: 100, BlockDuration: 30 * time.Minute},
			models.ClassDefault: {Window: 15 * time.Minute, MaxRequests: 300, BlockDuration: 15 * time.Minute},
		},
		BodyCeilings: map[models.EndpointClass]int64{
			models.ClassAuth:    validation.MaxBodySize,
			models.ClassUpload:  validation.MaxUploadBodySize,
			models.ClassAPI:     validation.MaxBodySize,
			models.ClassDefault: validation.MaxBodySize,
		},
		Sweep: SweepConfig{
			Interval:  10 * time.Minute,
			Retention: 6 * time.Hour,
		},
	}
}

// GetLimit returns the admission limit for an endpoint class, falling back
// to the default class when unconfigured.
func (c *Config) GetLimit(class models.EndpointClass) Limit {
	if limit, ok := c.Limits[class]; ok {
		return limit
	}
	return c.Limits[models.ClassDefault]
}

// GetBodyCeiling returns the body size ceiling for an endpoint class.
func (c *Config) GetBodyCeiling(class models.EndpointClass) int64 {
	if ceiling, ok := c.BodyCeilings[class]; ok {
		return ceiling
	}
	return c.BodyCeilings[models.ClassDefault]
}
