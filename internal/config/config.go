// Package config loads the dermis service configuration from TOML files and
// DERMIS_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/pkg/registry"
	"github.com/JaimeStill/dermis/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvDermisEnv             = "DERMIS_ENV"
	EnvDermisShutdownTimeout = "DERMIS_SHUTDOWN_TIMEOUT"
	EnvDermisVersion         = "DERMIS_VERSION"
)

var serviceEnv = &remote.Env{
	BaseURL:        "DERMIS_SERVICE_BASE_URL",
	Timeout:        "DERMIS_SERVICE_TIMEOUT",
	ExplainTimeout: "DERMIS_SERVICE_EXPLAIN_TIMEOUT",
}

var imagesEnv = &images.Env{
	Source:    "DERMIS_IMAGES_SOURCE",
	KeyPrefix: "DERMIS_IMAGES_KEY_PREFIX",
}

var sessionsEnv = &registry.Env{
	IdleTTL:       "DERMIS_SESSIONS_IDLE_TTL",
	SweepInterval: "DERMIS_SESSIONS_SWEEP_INTERVAL",
}

var localeEnv = &locale.Env{
	Default: "DERMIS_LOCALE_DEFAULT",
}

var storageEnv = &storage.Env{
	ContainerName:    "DERMIS_STORAGE_CONTAINER_NAME",
	ConnectionString: "DERMIS_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration for the dermis service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	API             APIConfig       `toml:"api"`
	Service         remote.Config   `toml:"service"`
	Images          images.Config   `toml:"images"`
	Sessions        registry.Config `toml:"sessions"`
	Locale          locale.Config   `toml:"locale"`
	Storage         storage.Config  `toml:"storage"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the DERMIS_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDermisEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads config.toml when present, merges the config.<env>.toml overlay
// selected by DERMIS_ENV, and finalizes every section.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Parse decodes TOML content into a Config without finalizing it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sections.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Service.Merge(&overlay.Service)
	c.Images.Merge(&overlay.Images)
	c.Sessions.Merge(&overlay.Sessions)
	c.Locale.Merge(&overlay.Locale)
	c.Storage.Merge(&overlay.Storage)
}

// Finalize applies defaults, environment overrides and validation to every
// section. Storage is only finalized when images are read from it.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Service.Finalize(serviceEnv); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	if err := c.Images.Finalize(imagesEnv); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	if err := c.Sessions.Finalize(sessionsEnv); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	if err := c.Locale.Finalize(localeEnv); err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	if c.Images.UsesStorage() {
		if err := c.Storage.Finalize(storageEnv); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvDermisShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvDermisVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func overlayPath() string {
	if env := os.Getenv(EnvDermisEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
