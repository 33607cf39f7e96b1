package remote

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds the remote diagnostic service connection settings.
type Config struct {
	BaseURL        string `toml:"base_url"`
	Timeout        string `toml:"timeout"`
	ExplainTimeout string `toml:"explain_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL        string
	Timeout        string
	ExplainTimeout string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// ExplainTimeoutDuration returns ExplainTimeout as a time.Duration.
func (c *Config) ExplainTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ExplainTimeout)
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
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.ExplainTimeout != "" {
		c.ExplainTimeout = overlay.ExplainTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.ExplainTimeout == "" {
		c.ExplainTimeout = "5m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.ExplainTimeout != "" {
		if v := os.Getenv(env.ExplainTimeout); v != "" {
			c.ExplainTimeout = v
		}
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url: %q", c.BaseURL)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.ExplainTimeout); err != nil {
		return fmt.Errorf("invalid explain_timeout: %w", err)
	}
	return nil
}
