package images

import (
	"fmt"
	"os"
)

// Source settings.
const (
	SourceRemote  = "remote"
	SourceStorage = "storage"
)

// Config selects where authenticated viewers' images are fetched from.
type Config struct {
	Source    string `toml:"source"`
	KeyPrefix string `toml:"key_prefix"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Source    string
	KeyPrefix string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Source == "" {
		c.Source = SourceRemote
	}
	if env != nil {
		if env.Source != "" {
			if v := os.Getenv(env.Source); v != "" {
				c.Source = v
			}
		}
		if env.KeyPrefix != "" {
			if v := os.Getenv(env.KeyPrefix); v != "" {
				c.KeyPrefix = v
			}
		}
	}

	if c.Source != SourceRemote && c.Source != SourceStorage {
		return fmt.Errorf("%w: %q", ErrInvalidSource, c.Source)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Source != "" {
		c.Source = overlay.Source
	}
	if overlay.KeyPrefix != "" {
		c.KeyPrefix = overlay.KeyPrefix
	}
}

// UsesStorage reports whether images are read from blob storage.
func (c *Config) UsesStorage() bool {
	return c.Source == SourceStorage
}
