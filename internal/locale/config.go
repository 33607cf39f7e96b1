package locale

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnknownLanguage indicates no embedded bundle exists for a language tag.
var ErrUnknownLanguage = errors.New("unknown language")

// Config selects the fallback language.
type Config struct {
	Default string `toml:"default"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Default string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Default == "" {
		c.Default = "en"
	}
	if env != nil && env.Default != "" {
		if v := os.Getenv(env.Default); v != "" {
			c.Default = v
		}
	}
	if c.Default == "" {
		return fmt.Errorf("default language required")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Default != "" {
		c.Default = overlay.Default
	}
}
