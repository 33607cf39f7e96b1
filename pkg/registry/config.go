package registry

import (
	"fmt"
	"os"
	"time"
)

// Config holds view expiry settings.
type Config struct {
	IdleTTL       string `toml:"idle_ttl"`
	SweepInterval string `toml:"sweep_interval"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	IdleTTL       string
	SweepInterval string
}

// IdleTTLDuration returns IdleTTL as a time.Duration.
func (c *Config) IdleTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdleTTL)
	return d
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.IdleTTL != "" {
		c.IdleTTL = overlay.IdleTTL
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
}

func (c *Config) loadDefaults() {
	if c.IdleTTL == "" {
		c.IdleTTL = "30m"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.IdleTTL != "" {
		if v := os.Getenv(env.IdleTTL); v != "" {
			c.IdleTTL = v
		}
	}
	if env.SweepInterval != "" {
		if v := os.Getenv(env.SweepInterval); v != "" {
			c.SweepInterval = v
		}
	}
}

func (c *Config) validate() error {
	ttl, err := time.ParseDuration(c.IdleTTL)
	if err != nil {
		return fmt.Errorf("invalid idle_ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("idle_ttl must be positive")
	}
	interval, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return fmt.Errorf("invalid sweep_interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	return nil
}
